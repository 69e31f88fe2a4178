package domain

import "time"

// TaskResult — результат выполнения одной задачи.
//
// Создаётся runner'ом по итогам всего цикла попыток (записывается
// только финальная попытка). Результаты записываются строго
// в порядке последовательности задач.
type TaskResult struct {
	// Name — имя задачи из последовательности.
	Name string `json:"name"`

	// Status — итоговый статус задачи.
	Status TaskStatus `json:"status"`

	// StartedAt — время начала первой попытки.
	StartedAt time.Time `json:"started_at"`

	// DurationMs — длительность всего цикла попыток в миллисекундах.
	DurationMs int64 `json:"duration_ms"`

	// Payload — результат обработчика при успехе.
	Payload any `json:"payload,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// Fatal — задача прервала последовательность фатальной ошибкой.
	Fatal bool `json:"fatal,omitempty"`

	// Retries — количество повторных попыток до финального результата.
	Retries int `json:"retries"`
}

// RunnerMetrics — счётчики одного runner'а.
//
// Мутируются только владеющим runner'ом; наружу отдаётся
// read-only снимок в составе RunSummary.
type RunnerMetrics struct {
	TasksCompleted int `json:"tasks_completed"`
	TasksFailed    int `json:"tasks_failed"`
	RequestsIssued int `json:"requests_issued"`
	Retries        int `json:"retries"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
