// pkg/enrollment/warehouse.go
package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// Column names of the enrollment dataset
const (
	EmailColumn   = "Email"
	CompanyColumn = "Company"
)

// Warehouse runs the active-enrollment query
type Warehouse interface {
	// QueryActiveEnrollment returns the distinct (Email, Company) pairs of active
	// enrollments for the given companies
	QueryActiveEnrollment(ctx context.Context, companies []string) (model.Dataset, error)
}

// Matches TABLE, SCHEMA.TABLE and DATABASE.SCHEMA.TABLE
var tableIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

const activeEnrollmentQuery = `SELECT DISTINCT "Email", "Company" FROM %s WHERE "Company" IN (?) AND UPPER("Course status") = 'ACTIVE'`

type enrollmentRow struct {
	Email   sql.NullString `db:"Email"`
	Company sql.NullString `db:"Company"`
}

// SQLWarehouse queries enrollment from a SQL warehouse (Snowflake, or a Postgres mirror)
type SQLWarehouse struct {
	db           *sqlx.DB
	table        string
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewSQLWarehouse creates a warehouse reading from table. db must carry the driver
// name so that placeholders are rebound for it.
func NewSQLWarehouse(db *sqlx.DB, table string, logger *zap.Logger) (*SQLWarehouse, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if !tableIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid enrollment table name: %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SQLWarehouse{
		db:     db,
		table:  table,
		logger: logger.Named("warehouse"),
	}, nil
}

// WithQueryTimeout bounds each enrollment query
func (w *SQLWarehouse) WithQueryTimeout(timeout time.Duration) *SQLWarehouse {
	w.queryTimeout = timeout
	return w
}

// QueryActiveEnrollment implements Warehouse
func (w *SQLWarehouse) QueryActiveEnrollment(ctx context.Context, companies []string) (model.Dataset, error) {
	ds := model.NewDataset(EmailColumn, CompanyColumn)
	if len(companies) == 0 {
		return ds, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf(activeEnrollmentQuery, w.table), companies)
	if err != nil {
		return ds, fmt.Errorf("failed to build enrollment query: %w", err)
	}
	query = w.db.Rebind(query)

	if w.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.queryTimeout)
		defer cancel()
	}

	w.logger.Info("Querying active enrollment",
		zap.String("table", w.table),
		zap.Strings("companies", companies))

	start := time.Now()
	var rows []enrollmentRow
	if err := w.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return ds, fmt.Errorf("enrollment query failed: %w", err)
	}

	ds.Rows = make([]model.Row, 0, len(rows))
	for _, r := range rows {
		ds.Rows = append(ds.Rows, model.Row{
			EmailColumn:   nullable(r.Email),
			CompanyColumn: nullable(r.Company),
		})
	}

	w.logger.Info("Enrollment query complete",
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)))

	return ds, nil
}

func nullable(s sql.NullString) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}
