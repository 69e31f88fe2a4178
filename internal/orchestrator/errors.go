package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNoAccounts — запуск без единого аккаунта.
	ErrNoAccounts = errors.New("no accounts to run")

	// ErrNoSequence — запуск без последовательности задач.
	ErrNoSequence = errors.New("no task sequence configured")

	// ErrAlreadyRunning — Run вызван повторно на том же экземпляре.
	ErrAlreadyRunning = errors.New("orchestrator already running")
)
