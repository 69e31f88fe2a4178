package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики запусков. Экспортируются на /metrics.
var (
	// RunsStarted — количество запущенных fleet-запусков.
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohort_runs_started_total",
		Help: "Total number of fleet runs started.",
	})

	// AccountsCompleted — аккаунты с полностью выполненной
	// последовательностью.
	AccountsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohort_accounts_completed_total",
		Help: "Total number of accounts whose task sequence completed.",
	})

	// AccountsFailed — аккаунты с ошибками, abort'ом или ошибкой
	// конфигурации.
	AccountsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohort_accounts_failed_total",
		Help: "Total number of accounts that failed or aborted.",
	})

	// TasksCompleted — успешно выполненные задачи по всем аккаунтам.
	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohort_tasks_completed_total",
		Help: "Total number of completed tasks across all accounts.",
	})

	// TasksFailed — задачи, провалившиеся после исчерпания retry.
	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohort_tasks_failed_total",
		Help: "Total number of failed tasks across all accounts.",
	})

	// RunDuration — распределение продолжительности запусков.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cohort_run_duration_seconds",
		Help:    "Duration of fleet runs in seconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})
)
