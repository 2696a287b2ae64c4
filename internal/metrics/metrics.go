// Package metrics – liczniki przebiegów ETL dla Prometheusa.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metaltronic_etl"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Metrics struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	rows          *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

// New rejestruje metryki w reg (nil = prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Failed pipeline stages.",
		}, []string{"stage"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows per dataset in the last run.",
		}, []string{"dataset"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.stageDuration, m.stageErrors, m.rows, m.lastSuccess)
	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) SetRows(dataset string, n int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(dataset).Set(float64(n))
}

func (m *Metrics) RunFinished(d time.Duration, err error, at time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
	if err != nil {
		m.runs.WithLabelValues(StatusError).Inc()
		return
	}
	m.runs.WithLabelValues(StatusSuccess).Inc()
	m.lastSuccess.Set(float64(at.Unix()))
}
