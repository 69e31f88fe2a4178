package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cohort/internal/domain"
)

// Формат ключа сводки: время запуска в UTC с точностью до секунды.
const summaryKeyFormat = "20060102-150405"

// SummaryKey формирует ключ сводки из времени запуска.
func SummaryKey(startedAt time.Time) string {
	return startedAt.UTC().Format(summaryKeyFormat)
}

// ParseSummaryKey разбирает ключ сводки обратно во время запуска.
func ParseSummaryKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(summaryKeyFormat, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid summary key %q: %w", key, err)
	}
	return t, nil
}

// FileSummaryStore — персистенция сводок в файловом каталоге.
//
// Альтернатива SummaryRepo для запусков без PostgreSQL: один
// JSON-файл на запуск, имя — время запуска.
type FileSummaryStore struct {
	dir string
}

// NewFileSummaryStore создаёт хранилище в каталоге dir.
func NewFileSummaryStore(dir string) (*FileSummaryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create summary dir: %w", err)
	}
	return &FileSummaryStore{dir: dir}, nil
}

// SaveSummary сохраняет сводку запуска с ключом по времени запуска.
// Повторное сохранение под тем же ключом — ErrAlreadyExists.
func (s *FileSummaryStore) SaveSummary(_ context.Context, summary *domain.AggregateSummary) error {
	key := SummaryKey(summary.StartedAt)
	path := filepath.Join(s.dir, key+".json")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("summary %s: %w", key, ErrAlreadyExists)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Get возвращает сводку по ключу (см. Keys).
func (s *FileSummaryStore) Get(_ context.Context, key string) (*domain.AggregateSummary, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read summary: %w", err)
	}

	var summary domain.AggregateSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}

// GetByRunID возвращает сводку по идентификатору запуска.
func (s *FileSummaryStore) GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.AggregateSummary, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		summary, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if summary.RunID == runID {
			return summary, nil
		}
	}
	return nil, ErrNotFound
}

// Keys возвращает ключи сохранённых сводок от новых к старым.
func (s *FileSummaryStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read summary dir: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Latest возвращает последнюю сохранённую сводку.
func (s *FileSummaryStore) Latest(ctx context.Context) (*domain.AggregateSummary, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, keys[0])
}
