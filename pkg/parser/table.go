package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultDelimiter separates cells in SIPp statistics files.
const DefaultDelimiter = ';'

// ErrUnreadableInput is returned when the input cannot be read as delimited text.
// It is fatal: no partial table is produced.
var ErrUnreadableInput = errors.New("unreadable input")

// ReadTable reads a header row followed by data rows from r.
func ReadTable(r io.Reader, delimiter rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header row", ErrUnreadableInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrUnreadableInput, err)
	}

	// positions maps a kept column name to its cell index
	positions := make([]int, 0, len(header))
	table := &Table{Header: make([]string, 0, len(header))}
	seen := make(map[string]bool, len(header))

	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		table.Header = append(table.Header, name)
		positions = append(positions, i)
	}

	if len(table.Header) == 0 {
		return nil, fmt.Errorf("%w: header row has no column names", ErrUnreadableInput)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
		}

		line, _ := reader.FieldPos(0)
		row := RawRow{
			Index:  len(table.Rows),
			Line:   line,
			Fields: make(map[string]string, len(table.Header)),
		}
		for j, name := range table.Header {
			pos := positions[j]
			if pos >= len(record) {
				break
			}
			row.Fields[name] = record[pos]
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
