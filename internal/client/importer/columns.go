package importer

import "strings"

type field int

const (
	fieldName field = iota
	fieldCNIC
	fieldPhone
	fieldAddress
	fieldIncome
	fieldOccupation
	fieldHouseholdSize
)

type column struct {
	field    field
	label    string
	aliases  []string
	required bool
}

// columns lists accepted header spellings. Matching ignores case and
// surrounding whitespace.
var columns = []column{
	{field: fieldName, label: "Name", aliases: []string{"name", "full name", "client name"}, required: true},
	{field: fieldCNIC, label: "CNIC", aliases: []string{"cnic", "cnic number", "national id"}, required: true},
	{field: fieldPhone, label: "Phone", aliases: []string{"phone", "phone number", "mobile", "contact"}, required: true},
	{field: fieldAddress, label: "Address", aliases: []string{"address", "home address"}, required: true},
	{field: fieldIncome, label: "Income", aliases: []string{"income", "monthly income"}},
	{field: fieldOccupation, label: "Occupation", aliases: []string{"occupation", "profession"}},
	{field: fieldHouseholdSize, label: "Household Size", aliases: []string{"household size", "household", "family size"}},
}

// colIndex maps a field to its position in the row.
type colIndex map[field]int

// detectHeader scans rows for the first one naming every required column.
func detectHeader(rows [][]string) (colIndex, int, bool) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if f, ok := lookup(cell); ok {
				if _, seen := cols[f]; !seen {
					cols[f] = i
				}
			}
		}

		if hasRequired(cols) {
			return cols, rowIdx, true
		}
	}

	return nil, 0, false
}

func lookup(cell string) (field, bool) {
	name := strings.ToLower(strings.TrimSpace(cell))

	for _, c := range columns {
		for _, alias := range c.aliases {
			if name == alias {
				return c.field, true
			}
		}
	}

	return 0, false
}

func hasRequired(cols colIndex) bool {
	for _, c := range columns {
		if !c.required {
			continue
		}

		if _, ok := cols[c.field]; !ok {
			return false
		}
	}

	return true
}

func requiredFields() []string {
	var out []string

	for _, c := range columns {
		if c.required {
			out = append(out, c.label)
		}
	}

	return out
}
