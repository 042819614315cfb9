package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/client"
)

// parseRows converts data rows into client params. Blank rows are skipped;
// rows with bad values are reported and do not stop the import.
// headerRowNum is the 0-based index of the header record.
func parseRows(cols colIndex, rows [][]string, headerRowNum int) Result {
	var res Result

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, skipping header

		if isBlank(row) {
			continue
		}

		params, err := parseRow(cols, row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Err: err})
			continue
		}

		res.Clients = append(res.Clients, params)
	}

	return res
}

func parseRow(cols colIndex, row []string) (client.CreateParams, error) {
	p := client.Profile{
		Name:       cellValue(row, cols, fieldName),
		CNIC:       cellValue(row, cols, fieldCNIC),
		Phone:      cellValue(row, cols, fieldPhone),
		Address:    cellValue(row, cols, fieldAddress),
		Occupation: cellValue(row, cols, fieldOccupation),
	}

	var missing []string

	for _, c := range columns {
		if c.required && cellValue(row, cols, c.field) == "" {
			missing = append(missing, c.label)
		}
	}

	if len(missing) > 0 {
		return client.CreateParams{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	if s := cellValue(row, cols, fieldIncome); s != "" {
		income, err := parseIncome(s)
		if err != nil {
			return client.CreateParams{}, fmt.Errorf("invalid income %q: %w", s, err)
		}

		p.Income = &income
	}

	if s := cellValue(row, cols, fieldHouseholdSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return client.CreateParams{}, fmt.Errorf("invalid household size %q", s)
		}

		p.HouseholdSize = &n
	}

	return client.CreateParams{Profile: p}, nil
}

// parseIncome accepts plain and grouped amounts with an optional currency
// marker: "45000", "45,000", "Rs. 45,000.50", "PKR 45000".
func parseIncome(s string) (decimal.Decimal, error) {
	clean := strings.ToUpper(strings.TrimSpace(s))
	for _, prefix := range []string{"PKR", "RS.", "RS"} {
		clean = strings.TrimPrefix(clean, prefix)
	}

	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, " ", "")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if d.IsNegative() {
		return decimal.Decimal{}, errors.New("negative amount")
	}

	return d, nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, cols colIndex, f field) string {
	idx, ok := cols[f]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
