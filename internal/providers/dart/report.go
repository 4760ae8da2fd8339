package dart

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/seenimoa/krfin/pkg/models"
)

var reportPeriodPattern = regexp.MustCompile(`\((\d{4})\.(\d{2})\)`)

// ReportPeriod derives bsns_year and reprt_code from a periodic report name
// such as "사업보고서 (2023.12)" or "[기재정정]분기보고서 (2024.09)".
func ReportPeriod(reportName string) (string, models.ReportCode, error) {
	m := reportPeriodPattern.FindStringSubmatch(reportName)
	if m == nil {
		return "", "", fmt.Errorf("report %q has no (YYYY.MM) period", reportName)
	}
	year, month := m[1], m[2]

	switch {
	case strings.Contains(reportName, "사업보고서"):
		return year, models.ReportAnnual, nil
	case strings.Contains(reportName, "반기보고서"):
		return year, models.ReportHalf, nil
	case strings.Contains(reportName, "분기보고서"):
		switch month {
		case "03":
			return year, models.ReportQ1, nil
		case "09":
			return year, models.ReportQ3, nil
		}
		return "", "", fmt.Errorf("report %q: quarter ending %s.%s is not Q1 or Q3", reportName, year, month)
	}
	return "", "", fmt.Errorf("report %q is not a periodic report", reportName)
}
