package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the engine. A nil *Collector
// is valid and records nothing, which keeps package tests free of metrics
// wiring.
type Collector struct {
	registry *prometheus.Registry

	documentsGenerated  *prometheus.CounterVec
	validationFailures  *prometheus.CounterVec
	templateDownloads   prometheus.Counter
	examsStarted        *prometheus.CounterVec
	examsCompleted      *prometheus.CounterVec
	examSessionsActive  prometheus.Gauge
	generatorSessions   prometheus.Gauge
	sessionsSwept       *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates and registers every metric on a private registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		documentsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elecmate_documents_generated_total",
			Help: "Documents generated, by template and outcome",
		}, []string{"template", "status"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elecmate_generator_validation_failures_total",
			Help: "Generate attempts rejected by field validation",
		}, []string{"template"}),
		templateDownloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elecmate_template_downloads_total",
			Help: "Blank template downloads",
		}),
		examsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elecmate_exams_started_total",
			Help: "Exam sessions started or retaken",
		}, []string{"exam"}),
		examsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elecmate_exams_completed_total",
			Help: "Exam sessions submitted, by result",
		}, []string{"exam", "result", "timed_out"}),
		examSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elecmate_exam_sessions_active",
			Help: "Exam sessions held in memory",
		}),
		generatorSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elecmate_generator_sessions_active",
			Help: "Document generator sessions held in memory",
		}),
		sessionsSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elecmate_sessions_swept_total",
			Help: "Idle sessions disposed by the cleanup worker",
		}, []string{"kind"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elecmate_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elecmate_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.documentsGenerated,
		c.validationFailures,
		c.templateDownloads,
		c.examsStarted,
		c.examsCompleted,
		c.examSessionsActive,
		c.generatorSessions,
		c.sessionsSwept,
		c.httpRequestsTotal,
		c.httpRequestDuration,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) DocumentGenerated(templateID string, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.documentsGenerated.WithLabelValues(templateID, status).Inc()
}

func (c *Collector) ValidationFailed(templateID string) {
	if c == nil {
		return
	}
	c.validationFailures.WithLabelValues(templateID).Inc()
}

func (c *Collector) TemplateDownloaded() {
	if c == nil {
		return
	}
	c.templateDownloads.Inc()
}

func (c *Collector) ExamStarted(examID string) {
	if c == nil {
		return
	}
	c.examsStarted.WithLabelValues(examID).Inc()
}

func (c *Collector) ExamCompleted(examID string, passed, timedOut bool) {
	if c == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	c.examsCompleted.WithLabelValues(examID, result, strconv.FormatBool(timedOut)).Inc()
}

func (c *Collector) SetExamSessions(n int) {
	if c == nil {
		return
	}
	c.examSessionsActive.Set(float64(n))
}

func (c *Collector) SetGeneratorSessions(n int) {
	if c == nil {
		return
	}
	c.generatorSessions.Set(float64(n))
}

func (c *Collector) SessionsSwept(kind string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.sessionsSwept.WithLabelValues(kind).Add(float64(n))
}

// ObserveRequest records one finished HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
