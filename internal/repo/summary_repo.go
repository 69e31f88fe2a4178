package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cohort/internal/domain"
)

// SummaryRepo — репозиторий сводок запусков в PostgreSQL.
//
// Per-account итоги хранятся одним JSONB-документом: сводка читается
// и пишется целиком, построчный доступ не нужен.
type SummaryRepo struct {
	pool *pgxpool.Pool
}

// NewSummaryRepo создаёт новый SummaryRepo.
func NewSummaryRepo(pool *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{pool: pool}
}

// SaveSummary сохраняет сводку запуска.
func (r *SummaryRepo) SaveSummary(ctx context.Context, summary *domain.AggregateSummary) error {
	summariesJSON, err := json.Marshal(summary.Summaries)
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}

	query := `
		INSERT INTO run_summaries (run_id, started_at, finished_at, accounts,
		                           completed, failed, success_rate, summaries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		summary.RunID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Accounts,
		summary.Completed,
		summary.Failed,
		summary.SuccessRate,
		summariesJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("run %s: %w", summary.RunID, ErrAlreadyExists)
		}
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// GetByRunID возвращает сводку по идентификатору запуска.
func (r *SummaryRepo) GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.AggregateSummary, error) {
	query := `
		SELECT run_id, started_at, finished_at, accounts,
		       completed, failed, success_rate, summaries
		FROM run_summaries
		WHERE run_id = $1
	`
	return r.scanSummary(r.pool.QueryRow(ctx, query, runID))
}

// Get возвращает сводку по ключу — времени запуска с точностью до
// секунды (см. SummaryKey).
func (r *SummaryRepo) Get(ctx context.Context, key string) (*domain.AggregateSummary, error) {
	from, err := ParseSummaryKey(key)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT run_id, started_at, finished_at, accounts,
		       completed, failed, success_rate, summaries
		FROM run_summaries
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at
		LIMIT 1
	`
	return r.scanSummary(r.pool.QueryRow(ctx, query, from, from.Add(time.Second)))
}

// Keys возвращает ключи сохранённых сводок от новых к старым.
func (r *SummaryRepo) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT started_at FROM run_summaries ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list summary keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var startedAt time.Time
		if err := rows.Scan(&startedAt); err != nil {
			return nil, fmt.Errorf("scan started_at: %w", err)
		}
		keys = append(keys, SummaryKey(startedAt))
	}
	return keys, rows.Err()
}

// Latest возвращает последнюю сохранённую сводку.
func (r *SummaryRepo) Latest(ctx context.Context) (*domain.AggregateSummary, error) {
	summaries, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, ErrNotFound
	}
	return &summaries[0], nil
}

// List возвращает сводки, отсортированные от новых к старым.
func (r *SummaryRepo) List(ctx context.Context, limit int) ([]domain.AggregateSummary, error) {
	query := `
		SELECT run_id, started_at, finished_at, accounts,
		       completed, failed, success_rate, summaries
		FROM run_summaries
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.AggregateSummary
	for rows.Next() {
		s, err := r.scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, rows.Err()
}

// scanSummary сканирует одну строку в AggregateSummary.
func (r *SummaryRepo) scanSummary(row pgx.Row) (*domain.AggregateSummary, error) {
	var s domain.AggregateSummary
	var summariesJSON []byte

	err := row.Scan(
		&s.RunID,
		&s.StartedAt,
		&s.FinishedAt,
		&s.Accounts,
		&s.Completed,
		&s.Failed,
		&s.SuccessRate,
		&summariesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan summary: %w", err)
	}

	if len(summariesJSON) > 0 {
		if err := json.Unmarshal(summariesJSON, &s.Summaries); err != nil {
			return nil, fmt.Errorf("unmarshal summaries: %w", err)
		}
	}

	return &s, nil
}
