// Package parser reads SIPp statistics files into raw rows.
package parser

// Table is a delimited report split into a header and raw rows.
type Table struct {
	// Header lists the column names in file order, whitespace-trimmed.
	// Blank names (SIPp terminates every line with the delimiter) are dropped.
	Header []string

	// Rows holds one entry per reporting interval, in file order.
	Rows []RawRow
}

// RawRow is a single data row keyed by column name.
type RawRow struct {
	// Index is the 0-based position of the row among the data rows.
	Index int

	// Line is the 1-based line number in the source file.
	Line int

	// Fields maps column name to the raw cell value. Columns missing from a
	// short row are absent from the map.
	Fields map[string]string
}

// Get returns the raw value of a column and whether the row has it.
func (r RawRow) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}
