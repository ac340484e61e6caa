package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpumarketwatch_provider_fetches_total",
			Help: "Total number of fetch attempts per provider",
		},
		[]string{"provider"},
	)

	ProviderFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpumarketwatch_provider_fetch_errors_total",
			Help: "Total number of failed fetches per provider",
		},
		[]string{"provider"},
	)

	ProviderFetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpumarketwatch_provider_fetch_duration_seconds",
			Help:    "Fetch duration in seconds per provider",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderOffers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_provider_offers",
			Help: "Number of offers contributed by a provider in the last run",
		},
		[]string{"provider"},
	)

	RunRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_run_records",
			Help: "Number of merged records produced by the last run",
		},
	)

	RunChangedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpumarketwatch_run_changed_total",
			Help: "Total number of runs whose snapshot changed on disk",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpumarketwatch_requests_total",
			Help: "Total number of HTTP API requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpumarketwatch_request_duration_seconds",
			Help:    "HTTP API request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	DBPoolTotalConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_db_pool_total_conns",
			Help: "Total number of connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiredConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_db_pool_acquired_conns",
			Help: "Currently acquired (in-use) connections per driver",
		},
		[]string{"driver"},
	)
)

// UpdateProviderMetrics records one provider fetch outcome.
func UpdateProviderMetrics(provider string, startedAt time.Time, offers int, err error) {
	ProviderFetchesTotal.WithLabelValues(provider).Inc()
	ProviderFetchDurationSeconds.WithLabelValues(provider).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		ProviderFetchErrorsTotal.WithLabelValues(provider).Inc()
		return
	}
	ProviderOffers.WithLabelValues(provider).Set(float64(offers))
}

// UpdateRunMetrics records the outcome of a pipeline run.
func UpdateRunMetrics(records int, changed bool) {
	RunRecords.Set(float64(records))
	if changed {
		RunChangedTotal.Inc()
	}
}

func UpdateDBPoolMetrics(driver string, total, idle, acquired float64) {
	DBPoolTotalConns.WithLabelValues(driver).Set(total)
	DBPoolIdleConns.WithLabelValues(driver).Set(idle)
	DBPoolAcquiredConns.WithLabelValues(driver).Set(acquired)
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpumarketwatch_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpumarketwatch_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
