// pkg/model/dataset.go
package model

import "math"

// Row maps a column name to a scalar value (string, number, bool or nil)
type Row map[string]interface{}

// Dataset is an ordered, in-memory table. Columns are unique within a dataset and
// shared by every row. Datasets are treated as immutable: every transformation
// returns a new Dataset and never mutates the rows of its input.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// NewDataset creates an empty dataset with the given columns
func NewDataset(columns ...string) Dataset {
	return Dataset{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0),
	}
}

// Len returns the number of rows
func (d Dataset) Len() int {
	return len(d.Rows)
}

// HasColumn reports whether the dataset has a column with exactly this name
func (d Dataset) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Filter returns a new dataset holding the rows for which keep returns true.
// Rows are shared with the receiver, not copied.
func (d Dataset) Filter(keep func(Row) bool) Dataset {
	out := Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([]Row, 0, len(d.Rows)),
	}
	for _, row := range d.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Project returns a new dataset reduced to the given columns
func (d Dataset) Project(columns ...string) Dataset {
	out := Dataset{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0, len(d.Rows)),
	}
	for _, row := range d.Rows {
		projected := make(Row, len(columns))
		for _, col := range columns {
			projected[col] = row[col]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out
}

// Records returns the rows as plain maps, every column present in each map and
// nulls rendered as nil. The result is safe to hand to an encoder.
func (d Dataset) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(d.Rows))
	for _, row := range d.Rows {
		record := make(map[string]interface{}, len(d.Columns))
		for _, col := range d.Columns {
			if v := row[col]; !IsNull(v) {
				record[col] = v
			} else {
				record[col] = nil
			}
		}
		records = append(records, record)
	}
	return records
}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNull reports whether a value represents a missing cell.
// A float NaN is what spreadsheet-style sources produce for empty numeric cells.
func IsNull(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}
