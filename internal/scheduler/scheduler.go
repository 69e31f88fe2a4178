package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RunFunc — один fleet-запуск. Ошибка логируется, расписание
// продолжается.
type RunFunc func(ctx context.Context) error

// Scheduler запускает fleet-запуски по cron-расписанию.
type Scheduler struct {
	cronExpr string
	run      RunFunc
	logger   *slog.Logger

	// now подменяется в тестах.
	now func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	// CronExpr — расписание запусков (обязательно).
	CronExpr string

	// Run — функция запуска (обязательно).
	Run RunFunc

	// Logger
	Logger *slog.Logger
}

// New создаёт Scheduler. Cron-выражение валидируется сразу.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Run == nil {
		return nil, errors.New("run function is required")
	}
	if err := ValidateCronExpr(cfg.CronExpr); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cronExpr: cfg.CronExpr,
		run:      cfg.Run,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start блокирует, выполняя запуски по расписанию до отмены контекста.
//
// Следующее время вычисляется от завершения предыдущего запуска —
// запуски одного расписания никогда не перекрываются.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		next, err := NextRun(s.cronExpr, s.now())
		if err != nil {
			return err
		}

		wait := next.Sub(s.now())
		s.logger.Info("next run scheduled", "at", next, "in", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.logger.Info("scheduled run starting")
		if err := s.run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// Ошибка запуска не останавливает расписание.
			s.logger.Error("scheduled run failed", "error", err)
		}
	}
}
