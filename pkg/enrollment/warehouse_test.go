package enrollment

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockWarehouse(t *testing.T, driver string) (*SQLWarehouse, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	w, err := NewSQLWarehouse(sqlx.NewDb(db, driver), "ANALYTICS.PUBLIC.ENROLLMENTS", zap.NewNop())
	require.NoError(t, err)
	return w.WithQueryTimeout(5 * time.Second), mock
}

func TestSQLWarehouse_SnowflakeBindvars(t *testing.T) {
	w, mock := newMockWarehouse(t, "snowflake")

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT DISTINCT "Email", "Company" FROM ANALYTICS.PUBLIC.ENROLLMENTS WHERE "Company" IN (?, ?) AND UPPER("Course status") = 'ACTIVE'`)).
		WithArgs("SEDUC-GO: Goias", "SEED-PR: Parana").
		WillReturnRows(sqlmock.NewRows([]string{"Email", "Company"}).
			AddRow("ana@x.com", "SEDUC-GO: Goias").
			AddRow(nil, "SEED-PR: Parana"))

	ds, err := w.QueryActiveEnrollment(context.Background(), []string{"SEDUC-GO: Goias", "SEED-PR: Parana"})
	require.NoError(t, err)

	assert.Equal(t, []string{EmailColumn, CompanyColumn}, ds.Columns)
	assert.Equal(t, []map[string]interface{}{
		{EmailColumn: "ana@x.com", CompanyColumn: "SEDUC-GO: Goias"},
		{EmailColumn: nil, CompanyColumn: "SEED-PR: Parana"},
	}, ds.Records())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWarehouse_PostgresBindvars(t *testing.T) {
	w, mock := newMockWarehouse(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE "Company" IN ($1, $2, $3)`)).
		WithArgs("a", "b", "c").
		WillReturnRows(sqlmock.NewRows([]string{"Email", "Company"}))

	ds, err := w.QueryActiveEnrollment(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWarehouse_QueryError(t *testing.T) {
	w, mock := newMockWarehouse(t, "snowflake")

	mock.ExpectQuery("SELECT DISTINCT").WillReturnError(errors.New("session expired"))

	_, err := w.QueryActiveEnrollment(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWarehouse_NoCompaniesSkipsQuery(t *testing.T) {
	w, mock := newMockWarehouse(t, "snowflake")

	ds, err := w.QueryActiveEnrollment(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLWarehouse_TableValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sdb := sqlx.NewDb(db, "snowflake")

	for _, table := range []string{"ENROLLMENTS", "PUBLIC.ENROLLMENTS", "DB.PUBLIC.ENROLLMENTS", "raw_data$v2"} {
		_, err := NewSQLWarehouse(sdb, table, nil)
		assert.NoError(t, err, table)
	}

	for _, table := range []string{"", "ENROLLMENTS; DROP TABLE x", "a.b.c.d", "1table", `"quoted"`} {
		_, err := NewSQLWarehouse(sdb, table, nil)
		assert.Error(t, err, table)
	}

	_, err = NewSQLWarehouse(nil, "ENROLLMENTS", nil)
	assert.Error(t, err)
}
