package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *MetricsRegistry {
	return NewMetricsRegistryWithRegistry(prometheus.NewRegistry())
}

func TestRecordOptimizationRunUpdatesCountersAndGauges(t *testing.T) {
	m := newTestRegistry()

	m.RecordOptimizationRun("BasicTabu", 250, 0.82, 4.5)

	assert.Equal(t, float64(250), testCounterValue(t, m.optimizationIterationsTotal.WithLabelValues("BasicTabu")))
	assert.Equal(t, 0.82, testGaugeValue(t, m.optimizationScoreGauge.WithLabelValues("BasicTabu")))
}

func TestIncrementEmergencyInsertionsCounts(t *testing.T) {
	m := newTestRegistry()

	m.IncrementEmergencyInsertions()
	m.IncrementEmergencyInsertions()

	assert.Equal(t, float64(2), testCounterValue(t, m.emergencyInsertionsTotal.WithLabelValues("all")))
}

func TestRecordCacheLookupTracksHitsAndMisses(t *testing.T) {
	m := newTestRegistry()

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, float64(1), testCounterValue(t, m.cacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testCounterValue(t, m.cacheLookupsTotal.WithLabelValues("miss")))
}

func TestSetTabuListSizeAndSessionsByState(t *testing.T) {
	m := newTestRegistry()

	m.SetTabuListSize("opt-1", 42)
	m.SetSessionsByState("Running", 3)

	assert.Equal(t, float64(42), testGaugeValue(t, m.tabuListSizeGauge.WithLabelValues("opt-1")))
	assert.Equal(t, float64(3), testGaugeValue(t, m.sessionsByStateGauge.WithLabelValues("Running")))
}

func TestHTTPMiddlewareRecordsRequest(t *testing.T) {
	m := newTestRegistry()

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/optimize", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), testCounterValue(t, m.httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/optimize")))
}

func TestGetHandlerServesPrometheusFormat(t *testing.T) {
	m := newTestRegistry()
	m.RecordOptimizationRun("BasicTabu", 10, 0.5, 1.0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.GetHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optimization_best_score")
}

func testCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.(prometheus.Metric).Write(&pb))
	return pb.GetCounter().GetValue()
}

func testGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, g.(prometheus.Metric).Write(&pb))
	return pb.GetGauge().GetValue()
}
