package runner

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shaiso/Cohort/internal/captcha"
	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/httpx"
	"github.com/shaiso/Cohort/internal/signer"
	"github.com/shaiso/Cohort/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxRetries           = 3
	defaultInitialRetryDelay    = 2 * time.Second
	defaultMaxConsecutiveErrors = 3
	defaultCooldownPeriod       = time.Minute
)

// Runner — машина состояний последовательности задач одного аккаунта.
//
// Ровно один Runner мутирует результаты и метрики своего аккаунта.
// Все точки ожидания (stagger, backoff, cooldown, паузы между
// задачами) отменяемы контекстом и не блокируют другие runner'ы.
type Runner struct {
	account  domain.Account
	registry *Registry
	rc       *Context

	maxRetries           int
	initialRetryDelay    time.Duration
	maxConsecutiveErrors int
	cooldownPeriod       time.Duration
	stopOnFailure        bool

	staggerMin, staggerMax     time.Duration
	taskDelay                  time.Duration
	taskDelayMin, taskDelayMax time.Duration

	statusMu sync.RWMutex
	status   domain.RunnerStatus

	results             []domain.TaskResult
	metrics             domain.RunnerMetrics
	consecutiveFailures int

	logger *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Registry — обработчики задач (обязательно).
	Registry *Registry

	// Окружение обработчиков: клиент, signer, капча.
	Client  *httpx.Client
	Signer  signer.Signer
	Captcha captcha.Solver

	// MaxRetries — попыток обработчика на задачу (default: 3).
	MaxRetries int

	// InitialRetryDelay — базовый backoff между попытками (default: 2s).
	InitialRetryDelay time.Duration

	// MaxConsecutiveErrors — порог circuit breaker'а (default: 3).
	MaxConsecutiveErrors int

	// CooldownPeriod — пауза после срабатывания breaker'а (default: 60s).
	CooldownPeriod time.Duration

	// StopOnFailure — остановить последовательность при срабатывании
	// breaker'а вместо cooldown'а.
	StopOnFailure bool

	// StaggerMin/Max — диапазон начальной задержки.
	StaggerMin time.Duration
	StaggerMax time.Duration

	// TaskDelay — фиксированная пауза между задачами.
	// TaskDelayMin/Max — диапазон; имеет приоритет над TaskDelay.
	TaskDelay    time.Duration
	TaskDelayMin time.Duration
	TaskDelayMax time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Runner для аккаунта.
func New(account domain.Account, cfg Config) *Runner {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	initialRetryDelay := cfg.InitialRetryDelay
	if initialRetryDelay <= 0 {
		initialRetryDelay = defaultInitialRetryDelay
	}

	maxConsecutive := cfg.MaxConsecutiveErrors
	if maxConsecutive <= 0 {
		maxConsecutive = defaultMaxConsecutiveErrors
	}

	cooldown := cfg.CooldownPeriod
	if cooldown <= 0 {
		cooldown = defaultCooldownPeriod
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithAccount(logger, account.Address)

	rc := &Context{
		Account: account,
		Client:  cfg.Client,
		Signer:  cfg.Signer,
		Captcha: cfg.Captcha,
		Logger:  logger,
	}

	return &Runner{
		account:              account,
		registry:             cfg.Registry,
		rc:                   rc,
		maxRetries:           maxRetries,
		initialRetryDelay:    initialRetryDelay,
		maxConsecutiveErrors: maxConsecutive,
		cooldownPeriod:       cooldown,
		stopOnFailure:        cfg.StopOnFailure,
		staggerMin:           cfg.StaggerMin,
		staggerMax:           cfg.StaggerMax,
		taskDelay:            cfg.TaskDelay,
		taskDelayMin:         cfg.TaskDelayMin,
		taskDelayMax:         cfg.TaskDelayMax,
		status:               domain.RunnerStatusIdle,
		logger:               logger,
	}
}

// Status возвращает текущий статус runner'а.
func (r *Runner) Status() domain.RunnerStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// ConsecutiveFailures возвращает текущий счётчик подряд идущих ошибок.
func (r *Runner) ConsecutiveFailures() int {
	return r.consecutiveFailures
}

// setStatus переводит runner в новый статус.
func (r *Runner) setStatus(s domain.RunnerStatus) {
	r.statusMu.Lock()
	r.status = s
	r.statusMu.Unlock()
}

// Run выполняет последовательность задач и возвращает итог.
//
// Ошибки обработчиков не возвращаются — они записаны в результатах.
// Run вызывается ровно один раз за жизнь runner'а.
func (r *Runner) Run(ctx context.Context, sequence []string) *domain.RunSummary {
	r.setStatus(domain.RunnerStatusRunning)
	r.metrics.StartedAt = time.Now()

	r.logger.Info("runner started", "tasks", len(sequence))

	defer func() {
		if r.rc.Client != nil {
			r.rc.Client.Close()
		}
	}()

	aborted := false
	halted := false

	// Начальный stagger рассинхронизирует одновременный старт аккаунтов.
	if err := r.sleep(ctx, r.staggerDelay()); err != nil {
		return r.finish(domain.RunnerStatusFailed, ErrRunCancelled.Error(), false)
	}

	for i, name := range sequence {
		if ctx.Err() != nil {
			return r.finish(domain.RunnerStatusFailed, ErrRunCancelled.Error(), false)
		}

		result := r.executeTask(ctx, name)
		r.results = append(r.results, result)

		if result.Status == domain.TaskStatusCompleted {
			r.consecutiveFailures = 0
			r.metrics.TasksCompleted++
			telemetry.TasksCompleted.Inc()
			r.logger.Info("task completed",
				"task", name,
				"retries", result.Retries,
				"duration_ms", result.DurationMs,
			)
		} else {
			r.metrics.TasksFailed++
			telemetry.TasksFailed.Inc()
			r.logger.Warn("task failed",
				"task", name,
				"retries", result.Retries,
				"error", result.Error,
				"fatal", result.Fatal,
			)

			// Фатальная ошибка прерывает последовательность немедленно,
			// независимо от stopOnFailure.
			if result.Fatal {
				aborted = true
				break
			}

			r.consecutiveFailures++
			if r.consecutiveFailures >= r.maxConsecutiveErrors {
				if r.stopOnFailure {
					halted = true
					break
				}

				r.logger.Warn("circuit breaker tripped",
					"consecutive_failures", r.consecutiveFailures,
					"cooldown", r.cooldownPeriod,
				)
				if err := r.sleep(ctx, r.cooldownPeriod); err != nil {
					return r.finish(domain.RunnerStatusFailed, ErrRunCancelled.Error(), false)
				}
				r.consecutiveFailures = 0
			}
		}

		// Пауза между задачами, кроме последней.
		if i < len(sequence)-1 {
			if err := r.sleep(ctx, r.interTaskDelay()); err != nil {
				return r.finish(domain.RunnerStatusFailed, ErrRunCancelled.Error(), false)
			}
		}
	}

	switch {
	case aborted:
		return r.finish(domain.RunnerStatusAborted, "", true)
	case halted:
		return r.finish(domain.RunnerStatusFailed, "", false)
	case r.metrics.TasksFailed > 0:
		return r.finish(domain.RunnerStatusFailed, "", false)
	default:
		return r.finish(domain.RunnerStatusCompleted, "", false)
	}
}

// finish фиксирует терминальный статус и собирает итог.
func (r *Runner) finish(status domain.RunnerStatus, runErr string, fatal bool) *domain.RunSummary {
	r.setStatus(status)
	r.metrics.FinishedAt = time.Now()

	if r.rc.Client != nil {
		stats := r.rc.Client.Stats()
		r.metrics.RequestsIssued = int(stats.Requests)
	}

	r.logger.Info("runner finished",
		"status", status,
		"completed", r.metrics.TasksCompleted,
		"failed", r.metrics.TasksFailed,
	)

	return &domain.RunSummary{
		Address:    r.account.Address,
		Label:      r.account.Label,
		Status:     status,
		Results:    r.results,
		Metrics:    r.metrics,
		Error:      runErr,
		FatalError: fatal,
	}
}

// executeTask выполняет одну задачу с bounded retry-циклом.
//
// Записывается только финальная попытка. Retry — явный цикл со
// счётчиком, backoff = initialRetryDelay * 2^n.
func (r *Runner) executeTask(ctx context.Context, name string) domain.TaskResult {
	started := time.Now()

	result := domain.TaskResult{
		Name:      name,
		StartedAt: started,
	}

	handler, err := r.registry.Get(name)
	if err != nil {
		result.Status = domain.TaskStatusFailed
		result.Error = err.Error()
		result.DurationMs = time.Since(started).Milliseconds()
		return result
	}

	var payload any
	var lastErr error
	retries := 0

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		payload, lastErr = handler(ctx, r.rc)
		if lastErr == nil {
			break
		}

		// Фатальные ошибки и отмена не ретраятся.
		if IsFatal(lastErr) || ctx.Err() != nil {
			break
		}
		if attempt == r.maxRetries-1 {
			break
		}

		delay := r.initialRetryDelay * time.Duration(1<<attempt)
		telemetry.WithTask(r.logger, name).Debug("retrying task",
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := r.sleep(ctx, delay); err != nil {
			break
		}
		retries++
	}

	r.metrics.Retries += retries
	result.Retries = retries
	result.DurationMs = time.Since(started).Milliseconds()

	if lastErr == nil {
		result.Status = domain.TaskStatusCompleted
		result.Payload = payload
	} else {
		result.Status = domain.TaskStatusFailed
		result.Error = lastErr.Error()
		result.Fatal = IsFatal(lastErr)
	}

	return result
}

// staggerDelay возвращает случайную начальную задержку из диапазона.
func (r *Runner) staggerDelay() time.Duration {
	return randomDelay(r.staggerMin, r.staggerMax)
}

// interTaskDelay возвращает паузу между задачами: диапазон имеет
// приоритет над фиксированным значением.
func (r *Runner) interTaskDelay() time.Duration {
	if r.taskDelayMax > 0 {
		return randomDelay(r.taskDelayMin, r.taskDelayMax)
	}
	return r.taskDelay
}

// randomDelay возвращает случайную длительность из [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= 0 || max < min {
		return min
	}
	if max == min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

// sleep — отменяемое ожидание.
func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
