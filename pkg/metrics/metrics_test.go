package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordIntent("create")
	m.RecordIntent("create")
	m.RecordMutation("delete", errors.New("boom"))
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordOracleCall(time.Now(), nil)
	m.SetTriples(42)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.IntentsTotal.WithLabelValues("create")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MutationsTotal.WithLabelValues("delete", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OracleCalls.WithLabelValues("ok")))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.Triples))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordIntent("read")
		m.RecordRead("oracle")
		m.RecordMutation("create", nil)
		m.RecordCache(true)
		m.RecordOracleCall(time.Now(), nil)
		m.SetTriples(1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordRead("keyword-matching")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ecotour_nlquery_reads_total{method="keyword-matching"} 1`)
}
