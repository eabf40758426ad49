package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerJobReasonDeadlineExceeded = "deadline_exceeded"
	SchedulerJobReasonCanceled         = "canceled"
	SchedulerJobReasonError            = "error"
)

// SchedulerMetrics tracks background job runs. All methods are no-ops on a
// nil receiver.
type SchedulerMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lag      prometheus.Histogram
}

func NewSchedulerMetrics(cfg Config) (*SchedulerMetrics, error) {
	return newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) (*SchedulerMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := promLabels(cfg)

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "guestlist_scheduler_job_runs_total",
		Help:        "Scheduler job executions.",
		ConstLabels: labels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "guestlist_scheduler_job_errors_total",
		Help:        "Scheduler job failures by reason.",
		ConstLabels: labels,
	}, []string{"job", "reason"})
	timeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "guestlist_scheduler_job_timeouts_total",
		Help:        "Scheduler jobs that hit their deadline.",
		ConstLabels: labels,
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "guestlist_scheduler_job_duration_seconds",
		Help:        "Scheduler job duration.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: labels,
	}, []string{"job"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "guestlist_scheduler_run_loop_lag_seconds",
		Help:        "Delay between the planned and actual start of a scheduler tick.",
		Buckets:     []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		ConstLabels: labels,
	})

	var err error
	if runs, err = registerCollector(registerer, runs); err != nil {
		return nil, err
	}
	if jobErrors, err = registerCollector(registerer, jobErrors); err != nil {
		return nil, err
	}
	if timeouts, err = registerCollector(registerer, timeouts); err != nil {
		return nil, err
	}
	if duration, err = registerCollector(registerer, duration); err != nil {
		return nil, err
	}
	if lag, err = registerCollector(registerer, lag); err != nil {
		return nil, err
	}

	return &SchedulerMetrics{
		runs:     runs,
		errors:   jobErrors,
		timeouts: timeouts,
		duration: duration,
		lag:      lag,
	}, nil
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(job, jobErrorReason(err)).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil {
		return
	}
	m.lag.Observe(d.Seconds())
}

func jobErrorReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return SchedulerJobReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return SchedulerJobReasonCanceled
	default:
		return SchedulerJobReasonError
	}
}
