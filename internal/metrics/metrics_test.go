package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveItems("message-channel", 3)
	m.ObserveClassification("text", ResultPositive, 50*time.Millisecond)
	m.ObserveClassification("text", ResultError, time.Second)
	m.ObserveRemediation("message-channel", "processed", "notified")
	m.ObservePollError("record-database")
	m.ObserveUnresolvedChannel()
	m.ObserveCleanup(false)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ItemsScanned.WithLabelValues("message-channel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifierCalls.WithLabelValues("text", ResultPositive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifierCalls.WithLabelValues("text", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Remediations.WithLabelValues("message-channel", "processed", "notified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollErrors.WithLabelValues("record-database")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnresolvedChannels))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttachmentCleanups.WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveItems("message-channel", 1)
		m.ObserveClassification("image", ResultNegative, time.Millisecond)
		m.ObserveRemediation("record-database", "no_action", "classified_negative")
		m.ObservePollError("message-channel")
		m.ObserveTick(time.Second, time.Now())
		m.ObserveCleanup(true)
	})
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveTick(2*time.Second, time.Unix(1700000000, 0))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "piiwatch_last_tick_timestamp_seconds 1.7e+09")
	assert.Contains(t, rec.Body.String(), "piiwatch_tick_duration_seconds_count 1")
}
