// Package tabular loads header-keyed CSV inventories.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ErrColumnNotFound is returned when a requested column is absent from the header.
var ErrColumnNotFound = errors.New("column not found")

// Table is an in-memory CSV file with a header row.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// Load reads the CSV file at path. The first record is the header.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Read parses CSV from r. Rows may have fewer or more fields than the header;
// missing cells read as empty strings.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV format: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty CSV file: missing header row")
	}

	header := make([]string, len(records[0]))
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	return &Table{header: header, index: index, rows: records[1:]}, nil
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the trimmed values of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	values := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		if i < len(row) {
			values = append(values, strings.TrimSpace(row[i]))
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

// Filter returns the non-empty values of the named column that contain a
// match of pattern, preserving row order.
func (t *Table) Filter(name string, pattern *regexp.Regexp) ([]string, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	matched := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if pattern == nil || pattern.MatchString(v) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}
