package domain

// RunnerStatus — статус runner'а одного аккаунта.
//
// Жизненный цикл:
//
//	IDLE → RUNNING → COMPLETED
//	               ↘ FAILED
//	               ↘ ABORTED (фатальная ошибка обработчика)
type RunnerStatus string

const (
	// RunnerStatusIdle — runner создан, но ещё не запущен.
	RunnerStatusIdle RunnerStatus = "IDLE"

	// RunnerStatusRunning — runner выполняет последовательность задач.
	RunnerStatusRunning RunnerStatus = "RUNNING"

	// RunnerStatusCompleted — все задачи последовательности выполнены.
	RunnerStatusCompleted RunnerStatus = "COMPLETED"

	// RunnerStatusFailed — последовательность завершилась с ошибками
	// (или запуск не состоялся из-за ошибки конфигурации).
	RunnerStatusFailed RunnerStatus = "FAILED"

	// RunnerStatusAborted — последовательность прервана фатальной ошибкой.
	RunnerStatusAborted RunnerStatus = "ABORTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s RunnerStatus) IsTerminal() bool {
	switch s {
	case RunnerStatusCompleted, RunnerStatusFailed, RunnerStatusAborted:
		return true
	default:
		return false
	}
}

// TaskStatus — статус выполнения одной задачи.
type TaskStatus string

const (
	// TaskStatusCompleted — задача успешно выполнена.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusFailed — задача завершилась ошибкой после всех retry.
	TaskStatusFailed TaskStatus = "FAILED"
)
