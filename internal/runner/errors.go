package runner

import (
	"errors"

	"github.com/shaiso/Cohort/internal/captcha"
)

// Ошибки runner'а.
var (
	// ErrHandlerNotFound — для имени задачи не зарегистрирован обработчик.
	ErrHandlerNotFound = errors.New("task handler not registered")

	// ErrHandler — бизнес-ошибка обработчика задачи. Retryable,
	// после исчерпания retry записывается как failed-результат.
	ErrHandler = errors.New("handler failure")

	// ErrRunCancelled — выполнение прервано отменой контекста.
	ErrRunCancelled = errors.New("run cancelled")
)

// fatalError помечает ошибку как фатальную для всей последовательности.
// Тегированный вариант вместо ad-hoc флага на ошибке: runner
// переключается по виду ошибки исчерпывающе.
type fatalError struct {
	err error
}

// Fatal оборачивает ошибку как фатальную: последовательность
// прерывается немедленно, независимо от stopOnFailure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Error реализует интерфейс error.
func (e *fatalError) Error() string {
	return "fatal: " + e.err.Error()
}

// Unwrap возвращает причину.
func (e *fatalError) Unwrap() error {
	return e.err
}

// IsFatal определяет, фатальна ли ошибка для последовательности.
// Исчерпание капча-сервиса фатально по контракту коллаборатора.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fe *fatalError
	if errors.As(err, &fe) {
		return true
	}
	return errors.Is(err, captcha.ErrSolverExhausted)
}
