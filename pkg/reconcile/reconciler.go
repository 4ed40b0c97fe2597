package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/metrics"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// ExternalSource fetches a client's roster from its external system
type ExternalSource interface {
	FetchExternal(ctx context.Context, clientID, dataType string) (model.Dataset, error)
}

// EnrollmentSource supplies the active enrollment rows of one company
type EnrollmentSource interface {
	ClientEnrollment(ctx context.Context, company string) (model.Dataset, error)
}

// ClientDirectory resolves and validates clients
type ClientDirectory interface {
	Lookup(clientID string) (model.ClientDescriptor, error)
	Validate(clientID, dataType string) (model.ClientDescriptor, error)
}

// Reconciler runs the unenrolled-users pipeline for one (client, data type) request
// at a time. It holds no per-request state and is safe for concurrent use.
type Reconciler struct {
	clients    ClientDirectory
	external   ExternalSource
	enrollment EnrollmentSource
	filters    *FilterRegistry
	patterns   []string
	now        func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewReconciler creates a reconciler
func NewReconciler(
	clients ClientDirectory,
	external ExternalSource,
	enrollment EnrollmentSource,
	filters *FilterRegistry,
	logger *zap.Logger,
) (*Reconciler, error) {
	if clients == nil || external == nil || enrollment == nil {
		return nil, errors.New("client directory, external source and enrollment source are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if filters == nil {
		var err error
		if filters, err = NewFilterRegistry(logger); err != nil {
			return nil, err
		}
	}

	return &Reconciler{
		clients:    clients,
		external:   external,
		enrollment: enrollment,
		filters:    filters,
		patterns:   DefaultJoinPatterns,
		now:        time.Now,
		logger:     logger.Named("reconciler"),
	}, nil
}

// WithClock sets the clock used for result timestamps
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// WithJoinPatterns sets the join column priority list
func (r *Reconciler) WithJoinPatterns(patterns ...string) *Reconciler {
	if len(patterns) > 0 {
		r.patterns = append([]string(nil), patterns...)
	}
	return r
}

// WithMetrics sets the metrics collector
func (r *Reconciler) WithMetrics(m *metrics.Metrics) *Reconciler {
	r.metrics = m
	return r
}

// FindUnenrolled finds the users present in the client's external roster for
// dataType that are not actively enrolled.
//
// An unsupported client or data type is returned as an error before anything is
// fetched. Every later failure is reported as an error-shaped Result with a nil error.
func (r *Reconciler) FindUnenrolled(ctx context.Context, clientID, dataType string) (Result, error) {
	start := time.Now()
	logger := r.logger.With(zap.String("client", clientID), zap.String("data_type", dataType))

	client, err := r.clients.Validate(clientID, dataType)
	if err != nil {
		logger.Warn("Rejected reconciliation request", zap.Error(err))
		r.metrics.ObserveReconciliation(clientID, dataType, "rejected", time.Since(start), 0)
		return Result{}, err
	}

	logger.Info("Finding unenrolled users")

	result, err := r.run(ctx, client, dataType, logger)
	if err != nil {
		logger.Error("Error finding unenrolled users",
			zap.String("kind", model.KindOf(err).String()),
			zap.Error(err))
		result = AssembleError(clientID, dataType, client.Company, err, r.now())
	}

	r.metrics.ObserveReconciliation(clientID, dataType, result.Status, time.Since(start), result.TotalUnenrolledUsers())
	return result, nil
}

// ErrorResult builds an error result for a request that failed outside the pipeline,
// such as a rejected client. The company is included only if the client resolves.
func (r *Reconciler) ErrorResult(clientID, dataType string, err error) Result {
	company := ""
	if client, lookupErr := r.clients.Lookup(clientID); lookupErr == nil {
		company = client.Company
	}
	return AssembleError(clientID, dataType, company, err, r.now())
}

func (r *Reconciler) run(ctx context.Context, client model.ClientDescriptor, dataType string, logger *zap.Logger) (Result, error) {
	logger.Info("Fetching external data...")
	fetchStart := time.Now()
	external, err := r.external.FetchExternal(ctx, client.ID, dataType)
	if err != nil {
		r.metrics.ObserveFetch(string(client.Source), "error", time.Since(fetchStart))
		return Result{}, classify(model.KindFetch, "fetch_external", err)
	}
	r.metrics.ObserveFetch(string(client.Source), "success", time.Since(fetchStart))
	logger.Info("Fetched external data",
		zap.Int("rows", external.Len()),
		zap.Int("columns", len(external.Columns)))

	external, report := r.filters.Apply(client.ID, dataType, external)
	if report.Applied {
		r.metrics.ObserveFilter(report.Rule, report.RowsRemoved)
	}

	externalCol, err := ResolveJoinColumn(external.Columns, r.patterns...)
	if err != nil {
		return Result{}, err
	}

	logger.Info("Fetching enrollment data...", zap.String("company", client.Company))
	enrollment, err := r.enrollment.ClientEnrollment(ctx, client.Company)
	if err != nil {
		return Result{}, classify(model.KindCacheFetch, "enrollment_data", err)
	}
	logger.Info("Fetched enrollment data", zap.Int("rows", enrollment.Len()))

	enrollmentCol, err := ResolveJoinColumn(enrollment.Columns, r.patterns...)
	if err != nil {
		return Result{}, err
	}

	logger.Info("Using join columns",
		zap.String("external", externalCol),
		zap.String("enrollment", enrollmentCol))

	join, err := AntiJoin(external, enrollment, externalCol, enrollmentCol)
	if err != nil {
		return Result{}, err
	}
	r.logNormalization(logger, "external", join.External.NullsDropped, join.External.EmptyDropped, join.External.DuplicatesRemoved)
	r.logNormalization(logger, "enrollment", join.Enrollment.NullsDropped, join.Enrollment.EmptyDropped, join.Enrollment.DuplicatesRemoved)

	result := Assemble(AssembleInput{
		Client:               client.ID,
		DataType:             dataType,
		Company:              client.Company,
		External:             external,
		Enrollment:           enrollment,
		Unenrolled:           join.Unenrolled,
		JoinColumnExternal:   externalCol,
		JoinColumnEnrollment: enrollmentCol,
	}, r.now())

	summary := Summarize(external.Len(), enrollment.Len(), join.Unenrolled.Len())
	logger.Info("Found unenrolled users",
		zap.Int("unenrolled", summary.TotalUnenrolledUsers),
		zap.Int("external_total", summary.TotalExternalRecords),
		zap.Int("enrolled_total", summary.TotalEnrolledRecords),
		zap.Float64("enrollment_rate", summary.EnrollmentRate),
		zap.Float64("unenrollment_rate", summary.UnenrollmentRate))

	return result, nil
}

func (r *Reconciler) logNormalization(logger *zap.Logger, side string, nulls, empty, duplicates int) {
	r.metrics.ObserveNormalization(side, nulls, empty, duplicates)
	if duplicates > 0 {
		logger.Info("Removed duplicate identifiers",
			zap.String("side", side),
			zap.Int("duplicates", duplicates))
	}
	logger.Debug("Normalization dropped rows",
		zap.String("side", side),
		zap.Int("nulls", nulls),
		zap.Int("empty", empty))
}

// classify tags err with kind unless it already carries a kind
func classify(kind model.ErrorKind, op string, err error) error {
	if model.KindOf(err) != model.KindUnknown {
		return err
	}
	return model.NewError(kind, op, err)
}
