// pkg/cleaner/cleaner.go
package cleaner

import (
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// NormalizeStats describes what Normalize removed from a dataset
type NormalizeStats struct {
	Column            string // Column that was normalized
	InputRows         int    // Rows before normalization
	NullsDropped      int    // Rows removed because the value was null
	EmptyDropped      int    // Rows removed because the canonical value was empty
	DuplicatesRemoved int    // Rows removed because an earlier row had the same canonical value
	OutputRows        int    // Rows after normalization
}

// Normalize canonicalizes column in every row of ds and returns a new dataset that
// holds only rows with a non-empty, first-seen canonical value, in original order.
//
// Order matters: nulls are filtered before string coercion, whitespace of every
// class is stripped before the empty check, and deduplication runs last.
// Normalize is idempotent.
func Normalize(ds model.Dataset, column string) (model.Dataset, NormalizeStats, error) {
	stats := NormalizeStats{
		Column:    column,
		InputRows: ds.Len(),
	}

	if !ds.HasColumn(column) {
		return model.Dataset{}, stats, model.Errorf(model.KindColumnNotFound, "normalize",
			"column %q not found in columns %v", column, ds.Columns)
	}

	out := model.Dataset{
		Columns: append([]string(nil), ds.Columns...),
		Rows:    make([]model.Row, 0, ds.Len()),
	}
	seen := make(map[string]struct{}, ds.Len())

	for _, row := range ds.Rows {
		value := row[column]
		if model.IsNull(value) {
			stats.NullsDropped++
			continue
		}

		canonical, ok := Canonical(value)
		if !ok {
			stats.EmptyDropped++
			continue
		}

		if _, dup := seen[canonical]; dup {
			stats.DuplicatesRemoved++
			continue
		}
		seen[canonical] = struct{}{}

		cleaned := row.Clone()
		cleaned[column] = canonical
		out.Rows = append(out.Rows, cleaned)
	}

	stats.OutputRows = out.Len()
	return out, stats, nil
}

// CanonicalSet returns the set of canonical values of column in an already
// normalized dataset
func CanonicalSet(ds model.Dataset, column string) map[string]struct{} {
	set := make(map[string]struct{}, ds.Len())
	for _, row := range ds.Rows {
		if s, ok := row[column].(string); ok {
			set[s] = struct{}{}
		}
	}
	return set
}
