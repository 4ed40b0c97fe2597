package cleaner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

func dataset(column string, values ...interface{}) model.Dataset {
	ds := model.NewDataset(column, "name")
	for i, v := range values {
		ds.Rows = append(ds.Rows, model.Row{column: v, "name": i})
	}
	return ds
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   string
		wantOK bool
	}{
		{name: "trim and lower", value: "  A@X.com ", want: "a@x.com", wantOK: true},
		{name: "inner whitespace", value: "a @x .com", want: "a@x.com", wantOK: true},
		{name: "non-breaking space and tab", value: "\u00a0a@x.com\t", want: "a@x.com", wantOK: true},
		{name: "nil", value: nil, wantOK: false},
		{name: "NaN", value: math.NaN(), wantOK: false},
		{name: "empty", value: "", wantOK: false},
		{name: "only whitespace", value: "  \t\n", wantOK: false},
		{name: "integer", value: 42, want: "42", wantOK: true},
		{name: "float", value: 1.5, want: "1.5", wantOK: true},
		{name: "bytes", value: []byte("B@X.COM"), want: "b@x.com", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Canonical(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	ds := dataset("email", " A@x.com ", "a@x.com", nil, "", "b@x.com", math.NaN(), "B@X.COM ")

	out, stats, err := Normalize(ds, "email")
	require.NoError(t, err)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, "a@x.com", out.Rows[0]["email"])
	assert.Equal(t, 0, out.Rows[0]["name"], "first occurrence is kept")
	assert.Equal(t, "b@x.com", out.Rows[1]["email"])
	assert.Equal(t, 4, out.Rows[1]["name"])

	assert.Equal(t, NormalizeStats{
		Column:            "email",
		InputRows:         7,
		NullsDropped:      2,
		EmptyDropped:      1,
		DuplicatesRemoved: 2,
		OutputRows:        2,
	}, stats)
}

func TestNormalize_NeverProducesPlaceholderText(t *testing.T) {
	ds := dataset("email", nil, math.NaN(), float32(math.NaN()))

	out, stats, err := Normalize(ds, "email")
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 3, stats.NullsDropped)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	ds := dataset("email", " A@x.com ")

	_, _, err := Normalize(ds, "email")
	require.NoError(t, err)
	assert.Equal(t, " A@x.com ", ds.Rows[0]["email"])
}

func TestNormalize_Idempotent(t *testing.T) {
	ds := dataset("email", "X@y.com", " x@y.com", "z@y.com ", nil, "", "Q@ y.com", "z@Y.com")

	once, _, err := Normalize(ds, "email")
	require.NoError(t, err)
	twice, stats, err := Normalize(once, "email")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Zero(t, stats.DuplicatesRemoved)
	assert.Zero(t, stats.NullsDropped)
	assert.Zero(t, stats.EmptyDropped)
}

func TestNormalize_ValuesPairwiseDistinct(t *testing.T) {
	ds := dataset("email", "a@x.com", "A@X.COM", "b@x.com", " b@x.com", "c@x.com", "a@x.com")

	out, _, err := Normalize(ds, "email")
	require.NoError(t, err)

	seen := make(map[interface{}]bool)
	for _, row := range out.Rows {
		assert.False(t, seen[row["email"]], "duplicate canonical value %v", row["email"])
		seen[row["email"]] = true
	}
	assert.Len(t, CanonicalSet(out, "email"), out.Len())
}

func TestNormalize_MissingColumn(t *testing.T) {
	ds := dataset("email", "a@x.com")

	_, _, err := Normalize(ds, "Email")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindColumnNotFound))
}
