package normalize

import "github.com/seenimoa/krfin/pkg/models"

var usLeading = []Column{
	{Key: "date", Label: "date", Kind: KindDate},
	{Key: "period", Label: "period", Kind: KindText},
	{Key: "calendarYear", Label: "calendarYear", Kind: KindText},
	{Key: "reportedCurrency", Label: "reportedCurrency", Kind: KindText},
}

func usColumns(fields ...string) []Column {
	cols := append([]Column(nil), usLeading...)
	for _, f := range fields {
		cols = append(cols, Column{Key: f, Label: f, Kind: KindDecimal})
	}
	return cols
}

// USColumns maps each FMP statement to its fixed line items.
var USColumns = map[models.USStatementKind][]Column{
	models.USIncome: usColumns(
		"revenue", "costOfRevenue", "grossProfit", "researchAndDevelopmentExpenses",
		"sellingGeneralAndAdministrativeExpenses", "operatingExpenses", "operatingIncome",
		"interestExpense", "incomeBeforeTax", "incomeTaxExpense", "netIncome",
		"eps", "epsdiluted", "ebitda", "weightedAverageShsOut", "weightedAverageShsOutDil",
	),
	models.USBalance: usColumns(
		"cashAndCashEquivalents", "shortTermInvestments", "netReceivables", "inventory",
		"totalCurrentAssets", "propertyPlantEquipmentNet", "goodwill", "totalAssets",
		"accountPayables", "shortTermDebt", "totalCurrentLiabilities", "longTermDebt",
		"totalLiabilities", "retainedEarnings", "totalStockholdersEquity", "totalDebt", "netDebt",
	),
	models.USCashFlow: usColumns(
		"netIncome", "depreciationAndAmortization", "stockBasedCompensation",
		"changeInWorkingCapital", "netCashProvidedByOperatingActivities",
		"capitalExpenditure", "acquisitionsNet", "netCashUsedForInvestingActivites",
		"debtRepayment", "commonStockRepurchased", "dividendsPaid",
		"netCashUsedProvidedByFinancingActivities", "netChangeInCash",
		"operatingCashFlow", "freeCashFlow",
	),
}

// USStatements projects FMP quarterly statements of one kind. Fields outside
// the schema are ignored; schema fields absent upstream are nil.
func USStatements(kind models.USStatementKind, rows []models.USStatement) Table {
	cols, ok := USColumns[kind]
	if !ok {
		cols = usLeading
	}
	b := newBuilder(models.USCategory(kind), cols, len(rows))
	for _, r := range rows {
		b.add(r)
	}
	return b.done()
}
