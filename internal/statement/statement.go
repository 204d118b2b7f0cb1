// Package statement parses broker-exported demat holding statements into
// normalized holdings. Statements arrive as loosely structured spreadsheets:
// account metadata rows first, then a header row somewhere below, then the
// holdings table. The header row is located heuristically by scanning for
// the "Company Name" cell.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/adityap2202/portfolios/internal/models"
)

// headerAnchor is the column label every demat statement carries; the row
// containing it is the header row.
const headerAnchor = "company name"

// Statement is a parsed demat statement: the holdings table plus the raw
// cell grid (used for account-metadata extraction).
type Statement struct {
	Holdings []models.Holding
	Cells    [][]string
}

// Parse reads a statement from r. The filename decides the format: .xlsx
// and .xlsm are read with excelize, anything else is treated as CSV.
func Parse(r io.Reader, filename string) (*Statement, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcel(r)
	default:
		rows, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}

	headerRow := findHeaderRow(rows)
	if headerRow < 0 {
		return nil, fmt.Errorf("could not find column headers in %s", filename)
	}

	cols, err := mapColumns(rows[headerRow])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	var holdings []models.Holding
	for _, row := range rows[headerRow+1:] {
		h, ok := parseRow(row, cols)
		if !ok {
			continue
		}
		holdings = append(holdings, h)
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("no valid holdings rows in %s", filename)
	}

	return &Statement{Holdings: holdings, Cells: rows}, nil
}

func readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Metadata rows above the header have fewer cells than the table.
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// findHeaderRow returns the index of the first row containing the header
// anchor cell, or -1.
func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), headerAnchor) {
				return i
			}
		}
	}
	return -1
}

// columns maps the holdings table columns to their indexes. rate and value
// are matched by prefix so "Rate (Rs.)" and "Value (Rs.)" both resolve.
type columns struct {
	company   int
	isin      int
	scripType int
	balance   int
	rate      int
	value     int
}

func mapColumns(header []string) (columns, error) {
	cols := columns{company: -1, isin: -1, scripType: -1, balance: -1, rate: -1, value: -1}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case strings.HasPrefix(name, "company name"):
			cols.company = i
		case name == "isin":
			cols.isin = i
		case strings.HasPrefix(name, "scrip type"):
			cols.scripType = i
		case strings.HasPrefix(name, "balance"):
			cols.balance = i
		case strings.HasPrefix(name, "rate"):
			cols.rate = i
		case strings.HasPrefix(name, "value"):
			cols.value = i
		}
	}

	missing := []string{}
	if cols.company < 0 {
		missing = append(missing, "Company Name")
	}
	if cols.balance < 0 {
		missing = append(missing, "Balance")
	}
	if cols.rate < 0 {
		missing = append(missing, "Rate")
	}
	if cols.value < 0 {
		missing = append(missing, "Value")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRow converts one table row to a holding. Rows without a company
// name or with non-numeric balance/rate/value are skipped (totals rows,
// footers, blank separators).
func parseRow(row []string, cols columns) (models.Holding, bool) {
	company := strings.TrimSpace(cellAt(row, cols.company))
	if company == "" {
		return models.Holding{}, false
	}

	balance, ok1 := parseNumber(cellAt(row, cols.balance))
	rate, ok2 := parseNumber(cellAt(row, cols.rate))
	value, ok3 := parseNumber(cellAt(row, cols.value))
	if !ok1 || !ok2 || !ok3 {
		return models.Holding{}, false
	}

	scripType := strings.TrimSpace(cellAt(row, cols.scripType))
	if scripType == "" {
		scripType = "EQ"
	}

	return models.Holding{
		CompanyName: company,
		ISIN:        strings.TrimSpace(cellAt(row, cols.isin)),
		ScripType:   scripType,
		Balance:     balance,
		Rate:        rate,
		Value:       value,
	}, true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseNumber coerces a statement cell to a float, tolerating thousands
// separators and currency noise like "1,234.50".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
