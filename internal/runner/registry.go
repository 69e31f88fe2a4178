package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shaiso/Cohort/internal/captcha"
	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/httpx"
	"github.com/shaiso/Cohort/internal/signer"
)

// Handler — обработчик одной задачи.
//
// Регистрируется встраивающим приложением по имени задачи.
// Возвращённая ошибка перехватывается runner'ом: обычная ошибка
// ретраится и записывается как failed-результат, фатальная
// (см. Fatal, IsFatal) прерывает последовательность.
type Handler func(ctx context.Context, rc *Context) (any, error)

// Context — окружение обработчика внутри одного runner'а.
//
// Доступ к values не синхронизируется: задачи одного аккаунта
// строго последовательны.
type Context struct {
	// Account — аккаунт под автоматизацией.
	Account domain.Account

	// Client — устойчивый HTTP-клиент аккаунта.
	Client *httpx.Client

	// Signer — подпись сообщений ключом аккаунта.
	Signer signer.Signer

	// Captcha — внешний решатель капч.
	Captcha captcha.Solver

	// Logger
	Logger *slog.Logger

	values map[string]any
}

// Set сохраняет значение для последующих задач последовательности.
func (rc *Context) Set(key string, value any) {
	if rc.values == nil {
		rc.values = make(map[string]any)
	}
	rc.values[key] = value
}

// Get возвращает значение, сохранённое предыдущей задачей.
func (rc *Context) Get(key string) (any, bool) {
	v, ok := rc.values[key]
	return v, ok
}

// GetString возвращает строковое значение или "".
func (rc *Context) GetString(key string) string {
	if v, ok := rc.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Registry — реестр обработчиков по имени задачи.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register добавляет обработчик для имени задачи.
func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Get возвращает обработчик для имени задачи.
func (r *Registry) Get(name string) (Handler, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
	return handler, nil
}

// Names возвращает отсортированные имена зарегистрированных задач.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
