package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/enrollment"
	"github.com/David-Botos/unenrolled-users/pkg/metrics"
	"github.com/David-Botos/unenrolled-users/pkg/model"
	"github.com/David-Botos/unenrolled-users/pkg/reconcile"
	"github.com/David-Botos/unenrolled-users/pkg/registry"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeReconciler struct {
	result reconcile.Result
	err    error
	calls  int
}

func (f *fakeReconciler) FindUnenrolled(ctx context.Context, clientID, dataType string) (reconcile.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeReconciler) ErrorResult(clientID, dataType string, err error) reconcile.Result {
	return reconcile.AssembleError(clientID, dataType, "", err, fixedTime)
}

type fakeCache struct {
	stats   enrollment.Stats
	cleared int
}

func (f *fakeCache) Stats() enrollment.Stats { return f.stats }
func (f *fakeCache) Clear()                  { f.cleared++ }

type testServer struct {
	*Server
	reconciler *fakeReconciler
	cache      *fakeCache
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clients, err := registry.New(
		model.ClientDescriptor{ID: "goias", Source: model.SourceFTP, DataTypes: []string{"students", "teachers"}, Company: "Goias"},
		model.ClientDescriptor{ID: "parana", Source: model.SourceGoogleDrive, DataTypes: []string{"students"}, Company: "Parana"},
	)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := &fakeReconciler{}
	cache := &fakeCache{stats: enrollment.Stats{Populated: true, Rows: 42, Companies: 2, Fills: 1, Generation: 3}}

	srv, err := NewServer(Dependencies{
		Reconciler: rec,
		Clients:    clients,
		Cache:      cache,
		Metrics:    m,
		Gatherer:   reg,
	}, &config.ServerConfig{Host: "127.0.0.1", Port: 8000}, zap.NewNop())
	require.NoError(t, err)
	srv.now = func() time.Time { return fixedTime }

	return &testServer{Server: srv, reconciler: rec, cache: cache, registry: reg, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestGetUnenrolledUsers_Success(t *testing.T) {
	ts := newTestServer(t)
	unenrolled := model.NewDataset("email")
	unenrolled.Rows = append(unenrolled.Rows, model.Row{"email": "ana@x.com"})
	ts.reconciler.result = reconcile.Assemble(reconcile.AssembleInput{
		Client:               "goias",
		DataType:             "students",
		Company:              "Goias",
		Unenrolled:           unenrolled,
		JoinColumnExternal:   "email",
		JoinColumnEnrollment: "Email",
	}, fixedTime)

	w, body := ts.do(t, http.MethodGet, "/unenrolled?client=goias&data_type=students")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 1, body["total_unenrolled_users"])
	assert.Equal(t, "Goias", body["metadata"].(map[string]interface{})["snowflake_company"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGetUnenrolledUsers_MissingParams(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{"/unenrolled", "/unenrolled?client=goias", "/unenrolled?data_type=students&client=%20"} {
		w, body := ts.do(t, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "error", body["status"])
	}
	assert.Zero(t, ts.reconciler.calls)
}

func TestGetUnenrolledUsers_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result reconcile.Result
		want   int
	}{
		{
			name: "rejected client",
			err:  model.Errorf(model.KindConfiguration, "get_client_descriptor", "unsupported client: acre"),
			want: http.StatusBadRequest,
		},
		{
			name:   "fetch failure",
			result: reconcile.AssembleError("goias", "students", "Goias", model.Errorf(model.KindFetch, "fetch_external", "no files found"), fixedTime),
			want:   http.StatusBadGateway,
		},
		{
			name:   "cache failure",
			result: reconcile.AssembleError("goias", "students", "Goias", model.Errorf(model.KindCacheFetch, "enrollment_cache", "timeout"), fixedTime),
			want:   http.StatusBadGateway,
		},
		{
			name:   "no join column",
			result: reconcile.AssembleError("goias", "students", "Goias", model.Errorf(model.KindColumnNotFound, "resolve_column", "no email column"), fixedTime),
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown failure",
			result: reconcile.AssembleError("goias", "students", "Goias", errors.New("boom"), fixedTime),
			want:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.reconciler.result = tt.result
			ts.reconciler.err = tt.err

			w, body := ts.do(t, http.MethodGet, "/unenrolled?client=goias&data_type=students")

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, "goias", body["metadata"].(map[string]interface{})["client"])
		})
	}
}

func TestGetClients(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/clients")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]interface{}{
		"goias":  map[string]interface{}{"data_types": []interface{}{"students", "teachers"}, "source": "ftp"},
		"parana": map[string]interface{}{"data_types": []interface{}{"students"}, "source": "google_drive"},
	}, body["clients"])
}

func TestHealthAndCacheClear(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	cache := body["enrollment_cache"].(map[string]interface{})
	assert.Equal(t, true, cache["populated"])
	assert.EqualValues(t, 42, cache["rows"])

	w, _ = ts.do(t, http.MethodGet, "/cache/clear")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, ts.cache.cleared)

	w, body = ts.do(t, http.MethodPost, "/cache/clear")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 1, ts.cache.cleared)
}

func TestRootAndNotFound(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Unenrolled Users API", body["message"])
	assert.Equal(t, fixedTime.Format(time.RFC3339Nano), body["timestamp"])

	w, body = ts.do(t, http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", body["message"])
	assert.Contains(t, body["available_endpoints"], "/unenrolled")
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}

func TestRecovery(t *testing.T) {
	ts := newTestServer(t)
	ts.router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w, body := ts.do(t, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/panic", "500")))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health")

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))

	w, _ := ts.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unenrolled_http_requests_total")
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Dependencies{}, &config.ServerConfig{}, nil)
	assert.Error(t, err)
}
