package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.DocumentGenerated("invoice", nil)
	c.ExamCompleted("mock", true, false)
	c.ObserveRequest("GET", "/health", 200, time.Millisecond)
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.DocumentGenerated("invoice", nil)
	c.DocumentGenerated("invoice", errors.New("boom"))
	c.ExamCompleted("mock", true, true)
	c.SetExamSessions(3)

	require.Equal(t, 1.0, testutil.ToFloat64(c.documentsGenerated.WithLabelValues("invoice", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.documentsGenerated.WithLabelValues("invoice", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.examsCompleted.WithLabelValues("mock", "pass", "true")))
	require.Equal(t, 3.0, testutil.ToFloat64(c.examSessionsActive))
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector()
	c.TemplateDownloaded()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "elecmate_template_downloads_total 1")
}
