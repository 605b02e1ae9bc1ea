// Package schema resolves logical field names against the header row of a
// decoded export. Back-office exports rename and reorder columns between
// platform versions, so resolution tolerates case differences and partial
// header names, with an explicit exact-match priority rule.
package schema

import "strings"

// FieldSpec describes one logical field to locate in a header row.
type FieldSpec struct {
	// Name is the logical field name used for positional access later.
	Name string

	// Terms are searched as case-insensitive substrings, in order.
	// List more specific terms first when headers can collide.
	Terms []string

	// Exact, when non-empty, is tried as a trimmed case-insensitive
	// equality match before any substring search.
	Exact string

	// Required fields that cannot be resolved fail the whole file before
	// any row is processed.
	Required bool
}

// Columns maps logical field names to their column index in a table.
type Columns map[string]int

// FindColumn locates a column in headers. If exact is non-empty the headers
// are scanned first for a trimmed, case-insensitive equality match; only then
// are the search terms tried as substrings, in the order given. The first
// matching header wins. Returns -1 when nothing matches.
func FindColumn(headers []string, terms []string, exact string) int {
	if exact != "" {
		want := strings.ToUpper(strings.TrimSpace(exact))
		for i, h := range headers {
			if strings.ToUpper(strings.TrimSpace(h)) == want {
				return i
			}
		}
	}

	for i, h := range headers {
		hu := strings.ToUpper(strings.TrimSpace(h))
		for _, term := range terms {
			if strings.Contains(hu, strings.ToUpper(term)) {
				return i
			}
		}
	}
	return -1
}

// Resolve locates every spec in headers and returns the resolved column map
// plus the names of all required fields that could not be found. Optional
// fields that are missing are simply absent from the map.
func Resolve(headers []string, specs []FieldSpec) (Columns, []string) {
	cols := make(Columns, len(specs))
	var missing []string

	for _, spec := range specs {
		idx := FindColumn(headers, spec.Terms, spec.Exact)
		if idx < 0 {
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		cols[spec.Name] = idx
	}
	return cols, missing
}

// Cell returns the trimmed value of a resolved field in row, or "" when the
// field is unresolved or the row is too short.
func (c Columns) Cell(row []string, name string) string {
	pos, ok := c[name]
	if !ok || pos < 0 || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}
