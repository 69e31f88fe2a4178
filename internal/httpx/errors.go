package httpx

import (
	"errors"
	"fmt"
)

// Ошибки HTTP-клиента.
var (
	// ErrTransport — ошибка сетевого/TLS-уровня. Retryable с ротацией
	// fingerprint'а.
	ErrTransport = errors.New("transport failure")

	// ErrEncodingMismatch — сервер отклонил выбранный формат заголовков.
	// Корректируется на месте через EncodingMemory.
	ErrEncodingMismatch = errors.New("header encoding rejected")

	// ErrRateLimitWait — ожидание rate limiter'а прервано отменой.
	ErrRateLimitWait = errors.New("rate limiter wait interrupted")
)

// RequestError — финальная ошибка запроса после исчерпания всех
// попыток. Несёт последнюю причину.
type RequestError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

// Error реализует интерфейс error.
func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s %s failed after %d attempts: %v", e.Method, e.URL, e.Attempts, e.Err)
}

// Unwrap возвращает последнюю причину.
func (e *RequestError) Unwrap() error {
	return e.Err
}
