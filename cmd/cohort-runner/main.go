// Cohort Runner — выполняет fleet-запуски аккаунтов.
//
// Runner:
//   - Загружает конфигурацию, аккаунты и пул прокси
//   - Выполняет последовательность задач каждого аккаунта
//   - Персистирует сводку запуска (файлы или PostgreSQL)
//   - Публикует события завершения в RabbitMQ (опционально)
//   - По cron-расписанию повторяет запуски (опционально)
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Cohort/internal/captcha"
	"github.com/shaiso/Cohort/internal/config"
	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/httpx"
	"github.com/shaiso/Cohort/internal/mq"
	"github.com/shaiso/Cohort/internal/orchestrator"
	"github.com/shaiso/Cohort/internal/repo"
	"github.com/shaiso/Cohort/internal/runner"
	"github.com/shaiso/Cohort/internal/scheduler"
	"github.com/shaiso/Cohort/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cohort-runner")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("COHORT_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	accounts, err := config.LoadAccounts(cfg.Fleet.AccountsFile)
	if err != nil {
		logger.Error("failed to load accounts", "error", err)
		os.Exit(1)
	}
	logger.Info("accounts loaded", "count", len(accounts))

	var proxies []*domain.Proxy
	if cfg.Fleet.ProxiesFile != "" {
		proxies, err = config.LoadProxies(cfg.Fleet.ProxiesFile)
		if err != nil {
			logger.Error("failed to load proxies", "error", err)
			os.Exit(1)
		}
		logger.Info("proxy pool loaded", "count", len(proxies))
	}

	// Персистенция сводок
	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init summary store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// RabbitMQ (опционально)
	var events orchestrator.Events
	if cfg.MQ.Enabled {
		mqURL := cfg.MQ.URL
		if mqURL == "" {
			mqURL = mq.DefaultURL()
		}

		mqConn, err := mq.NewConnection(mqURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, events disabled", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			} else {
				logger.Debug(mq.TopologyInfo())
			}

			events = mq.NewPublisher(mqConn, logger)
		}
	}

	// Внешний решатель капч (опционально)
	var solver captcha.Solver
	if cfg.Captcha.Endpoint != "" {
		solver = captcha.New(captcha.Config{
			Endpoint: cfg.Captcha.Endpoint,
			APIKey:   cfg.Captcha.APIKey,
		})
	}

	// Встроенные обработчики платформы
	registry := runner.NewRegistry()
	runner.RegisterDefaults(registry, cfg.Platform.BaseURL)
	logger.Info("task handlers registered", "tasks", registry.Names())

	newOrchestrator := func() *orchestrator.Orchestrator {
		return orchestrator.New(orchestrator.Config{
			Accounts:   accounts,
			Proxies:    proxies,
			Sequence:   cfg.Fleet.Sequence,
			Registry:   registry,
			Captcha:    solver,
			Client:     orchClientConfig(cfg),
			Runner:     orchRunnerConfig(cfg),
			MaxWorkers: cfg.Fleet.MaxWorkers,
			Store:      store,
			Events:     events,
			Logger:     logger,
		})
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		if err := http.ListenAndServe(cfg.Listen, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Каждый запуск — новый оркестратор: Run одноразовый.
	runOnce := func(ctx context.Context) error {
		_, err := newOrchestrator().Run(ctx)
		return err
	}

	if cfg.Schedule.Cron != "" {
		sched, err := scheduler.New(scheduler.Config{
			CronExpr: cfg.Schedule.Cron,
			Run:      runOnce,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("invalid schedule", "error", err)
			os.Exit(1)
		}

		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
			os.Exit(1)
		}
	} else {
		if err := runOnce(ctx); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("cohort-runner stopped")
}

// newStore создаёт хранилище сводок по конфигурации.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (orchestrator.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := repo.NewPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database connected")
		return repo.NewSummaryRepo(pool), pool.Close, nil
	default:
		store, err := repo.NewFileSummaryStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("summary store ready", "dir", cfg.Storage.Dir)
		return store, func() {}, nil
	}
}

// orchClientConfig собирает конфигурацию HTTP-клиента.
func orchClientConfig(cfg *config.Config) httpx.Config {
	return httpx.Config{
		RateLimit:   cfg.Client.RateLimit,
		RateWindow:  cfg.Client.RateWindow(),
		MaxAttempts: cfg.Client.MaxAttempts,
		RetryDelay:  cfg.Client.RetryDelay(),
		Timeout:     cfg.Client.Timeout(),
	}
}

// orchRunnerConfig собирает конфигурацию runner'а.
func orchRunnerConfig(cfg *config.Config) runner.Config {
	return runner.Config{
		MaxRetries:           cfg.Runner.MaxRetries,
		InitialRetryDelay:    cfg.Runner.InitialRetryDelay(),
		MaxConsecutiveErrors: cfg.Runner.MaxConsecutiveErrors,
		CooldownPeriod:       cfg.Runner.Cooldown(),
		StopOnFailure:        cfg.Runner.StopOnFailure,
		StaggerMin:           cfg.Runner.StaggerMin(),
		StaggerMax:           cfg.Runner.StaggerMax(),
		TaskDelay:            cfg.Runner.TaskDelay(),
		TaskDelayMin:         cfg.Runner.TaskDelayMin(),
		TaskDelayMax:         cfg.Runner.TaskDelayMax(),
	}
}
