package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/unenrolled-users/pkg/cleaner"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

func rows(columns []string, values ...[]interface{}) model.Dataset {
	ds := model.NewDataset(columns...)
	for _, v := range values {
		row := make(model.Row, len(columns))
		for i, col := range columns {
			row[col] = v[i]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func TestAntiJoin_ScenarioA(t *testing.T) {
	external := rows([]string{"email"},
		[]interface{}{" A@x.com "},
		[]interface{}{"a@x.com"},
		[]interface{}{nil},
	)
	enrollment := rows([]string{"Email"}, []interface{}{"a@x.com"})

	result, err := AntiJoin(external, enrollment, "email", "Email")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Unenrolled.Len())
	assert.Equal(t, 1, result.External.DuplicatesRemoved)
	assert.Equal(t, 1, result.External.NullsDropped)
}

func TestAntiJoin_ScenarioB(t *testing.T) {
	external := rows([]string{"email"}, []interface{}{"b@x.com"})
	enrollment := rows([]string{"Email"}, []interface{}{"a@x.com"})

	result, err := AntiJoin(external, enrollment, "email", "Email")
	require.NoError(t, err)

	require.Equal(t, 1, result.Unenrolled.Len())
	assert.Equal(t, []map[string]interface{}{{"email": "b@x.com"}}, result.Unenrolled.Records())
}

func TestAntiJoin_PreservesExternalColumnsOnly(t *testing.T) {
	external := rows([]string{"Nome", "E-mail", "Turma"},
		[]interface{}{"Ana", "ANA@x.com", "1A"},
		[]interface{}{"Bia", "bia@x.com", "2B"},
		[]interface{}{"Caio", "caio@x.com ", nil},
	)
	enrollment := rows([]string{"Email", "Company", "Nome"},
		[]interface{}{"ana@x.com", "SEDUC-GO: Goias", "other"},
	)

	result, err := AntiJoin(external, enrollment, "E-mail", "Email")
	require.NoError(t, err)

	assert.Equal(t, []string{"Nome", "E-mail", "Turma"}, result.Unenrolled.Columns)
	assert.Equal(t, []map[string]interface{}{
		{"Nome": "Bia", "E-mail": "bia@x.com", "Turma": "2B"},
		{"Nome": "Caio", "E-mail": "caio@x.com", "Turma": nil},
	}, result.Unenrolled.Records())
}

func TestAntiJoin_CompletenessAndCardinality(t *testing.T) {
	external := rows([]string{"email", "id"},
		[]interface{}{"a@x.com", 1},
		[]interface{}{"B@x.com", 2},
		[]interface{}{"c@x.com", 3},
		[]interface{}{" b@x.com", 4},
		[]interface{}{"d@x.com", 5},
		[]interface{}{"", 6},
		[]interface{}{"e @x.com", 7},
	)
	enrollment := rows([]string{"Email"},
		[]interface{}{"b@x.com"},
		[]interface{}{"E@X.COM"},
		[]interface{}{"B@X.COM"},
		[]interface{}{nil},
		[]interface{}{"zz@x.com"},
	)

	result, err := AntiJoin(external, enrollment, "email", "Email")
	require.NoError(t, err)

	normExternal, _, err := cleaner.Normalize(external, "email")
	require.NoError(t, err)
	normEnrollment, _, err := cleaner.Normalize(enrollment, "Email")
	require.NoError(t, err)
	enrolled := cleaner.CanonicalSet(normEnrollment, "Email")

	assert.LessOrEqual(t, result.Unenrolled.Len(), normExternal.Len())

	inResult := make(map[string]bool)
	for _, row := range result.Unenrolled.Rows {
		id := row["email"].(string)
		inResult[id] = true
		_, ok := enrolled[id]
		assert.False(t, ok, "%s is enrolled but was reported", id)
	}
	for _, row := range normExternal.Rows {
		id := row["email"].(string)
		if !inResult[id] {
			_, ok := enrolled[id]
			assert.True(t, ok, "%s is not enrolled but was not reported", id)
		}
	}

	var ids []interface{}
	for _, row := range result.Unenrolled.Rows {
		ids = append(ids, row["id"])
	}
	assert.Equal(t, []interface{}{1, 3, 5}, ids, "post-normalization order is kept")
}

func TestAntiJoin_EmptyEnrollment(t *testing.T) {
	external := rows([]string{"email"}, []interface{}{"a@x.com"}, []interface{}{"b@x.com"})
	enrollment := model.NewDataset("Email", "Company")

	result, err := AntiJoin(external, enrollment, "email", "Email")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Unenrolled.Len())
}

func TestAntiJoin_MissingColumn(t *testing.T) {
	external := rows([]string{"email"}, []interface{}{"a@x.com"})
	enrollment := rows([]string{"Email"}, []interface{}{"a@x.com"})

	_, err := AntiJoin(external, enrollment, "mail", "Email")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindColumnNotFound))

	_, err = AntiJoin(external, enrollment, "email", "email")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindColumnNotFound))
}
