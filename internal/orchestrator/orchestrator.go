package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cohort/internal/captcha"
	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/httpx"
	"github.com/shaiso/Cohort/internal/mq"
	"github.com/shaiso/Cohort/internal/runner"
	"github.com/shaiso/Cohort/internal/signer"
	"github.com/shaiso/Cohort/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxWorkers    = 5
	defaultShutdownGrace = 30 * time.Second
)

// Store персистирует сводку запуска.
//
// Реализуется repo.SummaryRepo (PostgreSQL) и repo.FileSummaryStore.
type Store interface {
	SaveSummary(ctx context.Context, summary *domain.AggregateSummary) error
}

// Events публикует события жизненного цикла запуска.
// Реализуется mq.Publisher.
type Events interface {
	PublishAccountCompleted(ctx context.Context, payload mq.AccountCompletedPayload) error
	PublishRunCompleted(ctx context.Context, payload mq.RunCompletedPayload) error
}

// Orchestrator выполняет один запуск fleet'а аккаунтов.
type Orchestrator struct {
	accounts []domain.Account
	proxies  []*domain.Proxy
	sequence []string

	registry *runner.Registry
	captcha  captcha.Solver

	clientCfg httpx.Config
	runnerCfg runner.Config

	maxWorkers    int
	shutdownGrace time.Duration

	store  Store
	events Events

	mu        sync.Mutex
	running   bool
	summaries []domain.RunSummary

	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Accounts — аккаунты запуска (обязательно).
	Accounts []domain.Account

	// Proxies — общий пул прокси. Назначается round-robin аккаунтам
	// без персональной сетевой идентичности.
	Proxies []*domain.Proxy

	// Sequence — последовательность задач каждого аккаунта (обязательно).
	Sequence []string

	// Registry — обработчики задач (обязательно).
	Registry *runner.Registry

	// Captcha — внешний решатель капч (опционально).
	Captcha captcha.Solver

	// Client — шаблон конфигурации per-account HTTP-клиента.
	// Proxy и Logger подставляются оркестратором.
	Client httpx.Config

	// Runner — шаблон конфигурации per-account Runner.
	// Registry, Client, Signer, Captcha и Logger подставляются
	// оркестратором.
	Runner runner.Config

	// MaxWorkers — верхняя граница одновременных аккаунтов (default: 5).
	MaxWorkers int

	// ShutdownGrace — предел ожидания runner'ов после отмены
	// контекста (default: 30s).
	ShutdownGrace time.Duration

	// Store — персистенция сводки (опционально).
	Store Store

	// Events — публикация событий завершения (опционально).
	Events Events

	// Logger
	Logger *slog.Logger
}

// New создаёт Orchestrator.
func New(cfg Config) *Orchestrator {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	shutdownGrace := cfg.ShutdownGrace
	if shutdownGrace <= 0 {
		shutdownGrace = defaultShutdownGrace
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		accounts:      cfg.Accounts,
		proxies:       cfg.Proxies,
		sequence:      cfg.Sequence,
		registry:      cfg.Registry,
		captcha:       cfg.Captcha,
		clientCfg:     cfg.Client,
		runnerCfg:     cfg.Runner,
		maxWorkers:    maxWorkers,
		shutdownGrace: shutdownGrace,
		store:         cfg.Store,
		events:        cfg.Events,
		logger:        logger,
	}
}

// Run выполняет запуск: пул воркеров потребляет очередь аккаунтов,
// итоги агрегируются в порядке завершения.
//
// Ошибки обработчиков и runner'ов не возвращаются — они записаны
// в сводке. Ошибка возвращается только при невалидной конфигурации.
// Отмена контекста останавливает запуск: runner'ы завершаются
// со статусом FAILED, оркестратор ждёт их не дольше shutdownGrace.
func (o *Orchestrator) Run(ctx context.Context) (*domain.AggregateSummary, error) {
	if len(o.accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if len(o.sequence) == 0 {
		return nil, ErrNoSequence
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	runID := uuid.New()
	startedAt := time.Now()
	logger := telemetry.WithRunID(o.logger, runID.String())

	accounts := o.assignProxies()
	workers := min(o.maxWorkers, len(accounts))

	logger.Info("run started",
		"accounts", len(accounts),
		"workers", workers,
		"tasks", len(o.sequence),
	)
	telemetry.RunsStarted.Inc()

	jobs := make(chan domain.Account)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for account := range jobs {
				summary := o.runAccount(ctx, account, logger)
				o.collect(ctx, runID, summary)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, account := range accounts {
			select {
			case jobs <- account:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Info("shutdown requested, waiting for in-flight runners",
			"grace", o.shutdownGrace,
		)
		select {
		case <-done:
		case <-time.After(o.shutdownGrace):
			logger.Warn("shutdown grace elapsed, abandoning in-flight runners")
		}
	}

	// Все per-account клиенты закрыты; доиспользованные транспорты
	// освобождаются одним вызовом.
	httpx.CloseAllTransports()

	o.mu.Lock()
	summaries := o.summaries
	o.mu.Unlock()

	aggregate := &domain.AggregateSummary{
		RunID:     runID,
		StartedAt: startedAt,
		Accounts:  len(accounts),
		Summaries: summaries,
	}
	aggregate.Finalize(time.Now())

	telemetry.RunDuration.Observe(aggregate.Duration().Seconds())

	logger.Info("run finished",
		"completed", aggregate.Completed,
		"failed", aggregate.Failed,
		"success_rate", aggregate.SuccessRate,
		"duration", aggregate.Duration(),
	)

	o.persist(aggregate, logger)
	o.announce(aggregate, logger)

	return aggregate, nil
}

// assignProxies возвращает копию аккаунтов с назначенными прокси:
// аккаунты без персонального получают прокси из пула round-robin.
func (o *Orchestrator) assignProxies() []domain.Account {
	accounts := make([]domain.Account, len(o.accounts))
	copy(accounts, o.accounts)

	if len(o.proxies) == 0 {
		return accounts
	}

	next := 0
	for i := range accounts {
		if accounts[i].HasProxy() {
			continue
		}
		accounts[i].Proxy = o.proxies[next%len(o.proxies)]
		next++
	}

	return accounts
}

// runAccount выполняет последовательность одного аккаунта.
//
// Невозможность сконструировать signer — ошибка конфигурации:
// аккаунт записывается как failed без выполнения задач.
func (o *Orchestrator) runAccount(ctx context.Context, account domain.Account, logger *slog.Logger) *domain.RunSummary {
	sg, err := signer.New(account.PrivateKey)
	if err != nil {
		logger.Error("signer construction failed",
			"account", account.Address,
			"error", err,
		)
		return &domain.RunSummary{
			Address: account.Address,
			Label:   account.Label,
			Status:  domain.RunnerStatusFailed,
			Error:   err.Error(),
		}
	}

	clientCfg := o.clientCfg
	clientCfg.Proxy = account.Proxy
	clientCfg.Logger = telemetry.WithAccount(logger, account.Address)
	client := httpx.New(clientCfg)

	runnerCfg := o.runnerCfg
	runnerCfg.Registry = o.registry
	runnerCfg.Client = client
	runnerCfg.Signer = sg
	runnerCfg.Captcha = o.captcha
	runnerCfg.Logger = logger

	r := runner.New(account, runnerCfg)
	return r.Run(ctx, o.sequence)
}

// collect записывает итог аккаунта и публикует событие завершения.
func (o *Orchestrator) collect(ctx context.Context, runID uuid.UUID, summary *domain.RunSummary) {
	o.mu.Lock()
	o.summaries = append(o.summaries, *summary)
	o.mu.Unlock()

	if summary.Succeeded() {
		telemetry.AccountsCompleted.Inc()
	} else {
		telemetry.AccountsFailed.Inc()
	}

	if o.events == nil {
		return
	}

	payload := mq.AccountCompletedPayload{
		RunID:   runID,
		Address: summary.Address,
		Status:  string(summary.Status),
		Error:   summary.Error,
		Fatal:   summary.FatalError,
	}
	if err := o.events.PublishAccountCompleted(ctx, payload); err != nil {
		o.logger.Warn("failed to publish account event",
			"account", summary.Address,
			"error", err,
		)
	}
}

// persist сохраняет сводку; ошибка персистенции не валит запуск.
func (o *Orchestrator) persist(aggregate *domain.AggregateSummary, logger *slog.Logger) {
	if o.store == nil {
		return
	}

	// Отдельный контекст: сводка должна сохраниться и при отмене запуска.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.store.SaveSummary(ctx, aggregate); err != nil {
		logger.Error("failed to persist summary", "error", err)
		return
	}

	logger.Info("summary persisted", "key", aggregate.StartedAt.Format(time.RFC3339))
}

// announce публикует событие завершения запуска.
func (o *Orchestrator) announce(aggregate *domain.AggregateSummary, logger *slog.Logger) {
	if o.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload := mq.RunCompletedPayload{
		RunID:       aggregate.RunID,
		Accounts:    aggregate.Accounts,
		Completed:   aggregate.Completed,
		Failed:      aggregate.Failed,
		SuccessRate: aggregate.SuccessRate,
		DurationMs:  aggregate.Duration().Milliseconds(),
	}
	if err := o.events.PublishRunCompleted(ctx, payload); err != nil {
		logger.Warn("failed to publish run event", "error", err)
	}
}
