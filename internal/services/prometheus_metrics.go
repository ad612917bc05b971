package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	transactionsRecorded  *prometheus.CounterVec
	transactionsRejected  *prometheus.CounterVec
	ledgerSize            prometheus.Gauge
	persistFailures       prometheus.Counter
	persistSkipped        prometheus.Counter
	circuitBreakerState   *prometheus.GaugeVec
	assessmentsTotal      *prometheus.CounterVec
	assessmentDuration    prometheus.Histogram
	assessmentScore       prometheus.Histogram
	geofenceEvents        *prometheus.CounterVec
	insightsGenerated     *prometheus.CounterVec
	insightScanDuration   *prometheus.HistogramVec
	notificationsTotal    *prometheus.CounterVec
	forecastNextWeek      prometheus.Gauge
	patternsTracked       prometheus.Gauge
	highRiskMerchantCount prometheus.Gauge
}

// NewPrometheusMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		transactionsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spending_guard_transactions_recorded_total",
				Help: "Total number of transactions appended to the ledger",
			},
			[]string{"category"},
		),
		transactionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spending_guard_transactions_rejected_total",
				Help: "Total number of transactions rejected at the ledger boundary",
			},
			[]string{"reason"},
		),
		ledgerSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spending_guard_ledger_size",
				Help: "Current number of transactions held in memory",
			},
		),
		persistFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spending_guard_ledger_persist_failures_total",
				Help: "Total number of failed transaction store writes",
			},
		),
		persistSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spending_guard_ledger_persist_skipped_total",
				Help: "Total number of transaction store writes skipped while the circuit was open",
			},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spending_guard_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		assessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spending_guard_risk_assessments_total",
				Help: "Total number of risk assessments by level and gating action",
			},
			[]string{"level", "action"},
		),
		assessmentDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spending_guard_risk_assessment_duration_milliseconds",
				Help:    "Risk assessment duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		assessmentScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spending_guard_risk_score",
				Help:    "Distribution of risk scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		geofenceEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spending_guard_geofence_events_total",
				Help: "Total number of geofence boundary crossings",
			},
			[]string{"type", "kind"},
		),
		insightsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spending_guard_insights_generated_total",
				Help: "Total number of insights emitted",
			},
			[]string{"type", "severity"},
		),
		insightScanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spending_guard_insight_scan_duration_milliseconds",
				Help:    "Insight scan duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"scan"},
		),
		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spending_guard_notifications_total",
				Help: "Total number of notifications by outcome",
			},
			[]string{"outcome", "severity"},
		),
		forecastNextWeek: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spending_guard_forecast_next_week",
				Help: "Most recent next-week spending forecast",
			},
		),
		patternsTracked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spending_guard_patterns_tracked",
				Help: "Number of merchants with a spending pattern",
			},
		),
		highRiskMerchantCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spending_guard_high_risk_merchants",
				Help: "Number of merchants currently in the high risk tier",
			},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	switch name {
	case "transaction.recorded":
		m.transactionsRecorded.WithLabelValues(tags["category"]).Inc()
	case "transaction.rejected":
		m.transactionsRejected.WithLabelValues(tags["reason"]).Inc()
	case "ledger.persist.failed":
		m.persistFailures.Inc()
	case "ledger.persist.skipped":
		m.persistSkipped.Inc()
	case "risk.assessed":
		m.assessmentsTotal.WithLabelValues(tags["level"], tags["action"]).Inc()
	case "geofence.event":
		m.geofenceEvents.WithLabelValues(tags["type"], tags["kind"]).Inc()
	case "insight.generated":
		m.insightsGenerated.WithLabelValues(tags["type"], tags["severity"]).Inc()
	case "notification.sent", "notification.suppressed":
		outcome := "sent"
		if name == "notification.suppressed" {
			outcome = "suppressed"
		}
		m.notificationsTotal.WithLabelValues(outcome, tags["severity"]).Inc()
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	ms := float64(duration.Microseconds()) / 1000
	switch name {
	case "risk.assessment":
		m.assessmentDuration.Observe(ms)
	case "insight.scan.shallow":
		m.insightScanDuration.WithLabelValues("shallow").Observe(ms)
	case "insight.scan.deep":
		m.insightScanDuration.WithLabelValues("deep").Observe(ms)
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case "ledger.size":
		m.ledgerSize.Set(value)
	case "risk.score":
		m.assessmentScore.Observe(value)
	case "circuit_breaker.state":
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(value)
	case "forecast.next_week":
		m.forecastNextWeek.Set(value)
	case "patterns.tracked":
		m.patternsTracked.Set(value)
	case "patterns.high_risk":
		m.highRiskMerchantCount.Set(value)
	}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) IncrementCounter(string, map[string]string) {}
func (NoopMetrics) RecordProcessingTime(string, time.Duration) {}
func (NoopMetrics) RecordGauge(string, float64, map[string]string) {}
