package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary — итог выполнения последовательности задач для одного аккаунта.
//
// Владеет им runner; оркестратор читает summary после достижения
// терминального статуса.
type RunSummary struct {
	// Address — адрес аккаунта.
	Address string `json:"address"`

	// Label — метка аккаунта.
	Label string `json:"label,omitempty"`

	// Status — терминальный статус runner'а.
	Status RunnerStatus `json:"status"`

	// Results — результаты задач в порядке последовательности.
	Results []TaskResult `json:"results"`

	// Metrics — снимок счётчиков runner'а.
	Metrics RunnerMetrics `json:"metrics"`

	// Error — ошибка уровня запуска (например, невозможность
	// сконструировать signer). Пустая, если запуск состоялся.
	Error string `json:"error,omitempty"`

	// FatalError — последовательность прервана фатальной ошибкой.
	FatalError bool `json:"fatal_error,omitempty"`
}

// Result возвращает результат задачи по имени или nil, если задача
// не выполнялась (например, после abort'а).
func (s *RunSummary) Result(name string) *TaskResult {
	for i := range s.Results {
		if s.Results[i].Name == name {
			return &s.Results[i]
		}
	}
	return nil
}

// Succeeded возвращает true, если все задачи последовательности выполнены.
func (s *RunSummary) Succeeded() bool {
	return s.Status == RunnerStatusCompleted
}

// Duration возвращает продолжительность выполнения.
func (s *RunSummary) Duration() time.Duration {
	if s.Metrics.StartedAt.IsZero() || s.Metrics.FinishedAt.IsZero() {
		return 0
	}
	return s.Metrics.FinishedAt.Sub(s.Metrics.StartedAt)
}

// AggregateSummary — сводка по всему запуску fleet'а.
//
// Создаётся оркестратором один раз за запуск и персистируется
// с ключом по времени запуска.
type AggregateSummary struct {
	// RunID — уникальный идентификатор запуска.
	RunID uuid.UUID `json:"run_id"`

	// StartedAt — время начала запуска (ключ персистенции).
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения запуска.
	FinishedAt time.Time `json:"finished_at"`

	// Accounts — общее количество загруженных аккаунтов.
	Accounts int `json:"accounts"`

	// Completed — количество аккаунтов с полностью выполненной
	// последовательностью.
	Completed int `json:"completed"`

	// Failed — количество аккаунтов с ошибками или abort'ом.
	Failed int `json:"failed"`

	// SuccessRate — доля успешных аккаунтов (0..1).
	SuccessRate float64 `json:"success_rate"`

	// Summaries — итоги по каждому аккаунту (в порядке завершения).
	Summaries []RunSummary `json:"summaries"`
}

// Duration возвращает продолжительность запуска.
func (a *AggregateSummary) Duration() time.Duration {
	if a.StartedAt.IsZero() || a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Finalize вычисляет счётчики и фиксирует время завершения.
func (a *AggregateSummary) Finalize(now time.Time) {
	a.FinishedAt = now
	a.Completed = 0
	a.Failed = 0
	for i := range a.Summaries {
		if a.Summaries[i].Succeeded() {
			a.Completed++
		} else {
			a.Failed++
		}
	}
	if a.Accounts > 0 {
		a.SuccessRate = float64(a.Completed) / float64(a.Accounts)
	}
}
