package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/metrics"
	"courier-dispatch/internal/testutil/testlog"
)

func TestObservability_UsesRoutePatternForLabels(t *testing.T) {
	t.Parallel()

	m := metrics.NewHTTP()
	rec := testlog.New()

	r := chi.NewRouter()
	r.Use(Observability(rec.Logger(), m))
	r.Get("/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for range 2 {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/jobs/123", nil))
		require.Equal(t, http.StatusNoContent, resp.Code)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/jobs/{id}", "204")))
	require.Equal(t, uint64(2), histogramCount(t, m.Duration, http.MethodGet, "/jobs/{id}", "204"))

	entries := rec.WithEvent("http_request")
	require.Len(t, entries, 2)
	path, _ := entries[0].Field("path")
	require.Equal(t, "/jobs/{id}", path)
}

func TestObservability_UnmatchedRouteUsesRawPath(t *testing.T) {
	t.Parallel()

	m := metrics.NewHTTP()
	h := Observability(nil, m)(http.NotFoundHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/nowhere", "404")))
}

func histogramCount(t *testing.T, hv *prometheus.HistogramVec, method, path, status string) uint64 {
	t.Helper()

	obs, err := hv.GetMetricWithLabelValues(method, path, status)
	require.NoError(t, err)

	metric, ok := obs.(prometheus.Metric)
	require.True(t, ok, "must implement prometheus.Metric")

	out := &dto.Metric{}
	require.NoError(t, metric.Write(out))
	require.NotNil(t, out.GetHistogram())
	return out.GetHistogram().GetSampleCount()
}
