// Package export writes normalized tables as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/pkg/utils"
)

// utf8BOM makes spreadsheet applications read Korean CSV text as UTF-8.
const utf8BOM = "\xEF\xBB\xBF"

// WriteCSV writes one table with a label header row.
func WriteCSV(w io.Writer, t normalize.Table) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Labels()); err != nil {
		return err
	}
	for i := range t.Rows {
		if err := cw.Write(t.Cells(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes each table to its own sheet, named after its category.
func WriteXLSX(w io.Writer, tables ...normalize.Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("xlsx: no tables")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	used := make(map[string]int)
	for i, t := range tables {
		name := sheetName(t, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		header := make([]any, len(t.Columns))
		for j, label := range t.Labels() {
			header[j] = label
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return err
		}

		for r, row := range t.Rows {
			cells := make([]any, len(t.Columns))
			for j, c := range t.Columns {
				cells[j] = cellValue(row.Values[c.Key])
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

// sheetName returns a unique sheet name of at most 31 characters.
func sheetName(t normalize.Table, used map[string]int) string {
	base := string(t.Category)
	if base == "" {
		base = "data"
	}
	if r := []rune(base); len(r) > 28 {
		base = string(r[:28])
	}
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}

// cellValue keeps numbers numeric in the workbook.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		return x.InexactFloat64()
	}
	return v
}

// Transpose turns rows into columns: the first column's values become the
// header and every other column becomes a row headed by its label. This is
// the period-per-column layout of statement spreadsheets.
func Transpose(t normalize.Table) normalize.Table {
	out := normalize.Table{Category: t.Category, Rows: []normalize.Row{}}
	if len(t.Columns) == 0 {
		return out
	}

	head := t.Columns[0]
	out.Columns = make([]normalize.Column, 0, len(t.Rows)+1)
	out.Columns = append(out.Columns, normalize.Column{Key: "field", Label: head.Label, Kind: normalize.KindText})
	keys := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		keys[i] = fmt.Sprintf("c%d", i)
		out.Columns = append(out.Columns, normalize.Column{
			Key:   keys[i],
			Label: normalize.FormatValue(row.Values[head.Key]),
			Kind:  normalize.KindText,
		})
	}

	for _, c := range t.Columns[1:] {
		values := make(map[string]any, len(t.Rows)+1)
		values["field"] = c.Label
		for i, row := range t.Rows {
			values[keys[i]] = row.Values[c.Key]
		}
		out.Rows = append(out.Rows, normalize.Row{Values: values})
	}
	return out
}

var reUnsafe = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// Filename builds "<subject>_<kind>[_<variant>]_<YYYYMMDD>.<ext>" with
// path-unsafe characters replaced.
func Filename(subject, kind, variant, ext string, now time.Time) string {
	parts := []string{subject, kind}
	if variant != "" {
		parts = append(parts, variant)
	}
	parts = append(parts, utils.FormatYMD(now))
	for i, p := range parts {
		parts[i] = strings.Trim(reUnsafe.ReplaceAllString(p, "_"), "_")
	}
	return strings.Join(parts, "_") + "." + strings.TrimPrefix(ext, ".")
}

// Save writes tables to path, choosing the format by extension. A CSV path
// holds one table; further tables go to "<name>_<category>.csv" next to it.
// It returns the files written.
func Save(path string, tables ...normalize.Table) ([]string, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("export %s: no tables", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("export %s: %w", path, err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		if err := writeFile(path, func(w io.Writer) error { return WriteXLSX(w, tables...) }); err != nil {
			return nil, err
		}
		return []string{path}, nil
	case ".csv":
		written := make([]string, 0, len(tables))
		stem := strings.TrimSuffix(path, filepath.Ext(path))
		for i, t := range tables {
			p := path
			if i > 0 {
				p = fmt.Sprintf("%s_%s.csv", stem, t.Category)
			}
			if err := writeFile(p, func(w io.Writer) error { return WriteCSV(w, t) }); err != nil {
				return written, err
			}
			written = append(written, p)
		}
		return written, nil
	}
	return nil, fmt.Errorf("export %s: unsupported extension (want .csv or .xlsx)", path)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}
