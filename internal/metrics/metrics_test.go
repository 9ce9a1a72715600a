package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordFetch("YahooFinance", nil)
	r.RecordFetch("YahooFinance", errors.New("timeout"))
	r.RecordFetch("YahooFinance", errors.New("timeout"))
	r.RecordFallback("recommendation")
	r.RecordRankingDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("YahooFinance", StatusOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("YahooFinance", StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.llmFallbacks.WithLabelValues("recommendation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rankDropped))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordRun(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.runs.WithLabelValues(StatusOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.runs.WithLabelValues(StatusOK)))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordFetch("EDGAR", nil)
	r.RecordFallback("summary")
	r.RecordDuration("fetch", 0.1)
	r.RecordRankingDropped()
	r.RecordRun(nil)
	assert.Nil(t, r.Registry())
}

func TestHandlerServesMetrics(t *testing.T) {
	r := New()
	r.RecordDuration("signals", 0.01)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockpilot_ticker_pipeline_duration_seconds")
}
