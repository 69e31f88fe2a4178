package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cohort/internal/domain"
	"github.com/shaiso/Cohort/internal/repo"
)

// Оба бэкенда сводок должны удовлетворять Store.
var (
	_ Store = (*repo.FileSummaryStore)(nil)
	_ Store = (*repo.SummaryRepo)(nil)
)

func seededStore(t *testing.T, startedAt time.Time) (*repo.FileSummaryStore, *domain.AggregateSummary) {
	t.Helper()

	store, err := repo.NewFileSummaryStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := &domain.AggregateSummary{
		RunID:     uuid.New(),
		StartedAt: startedAt,
		Accounts:  1,
		Summaries: []domain.RunSummary{
			{Address: "0xA", Status: domain.RunnerStatusCompleted},
		},
	}
	summary.Finalize(startedAt.Add(time.Minute))

	if err := store.SaveSummary(t.Context(), summary); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	return store, summary
}

func TestLoadSummary(t *testing.T) {
	startedAt := time.Date(2026, 8, 23, 10, 15, 30, 0, time.UTC)
	store, saved := seededStore(t, startedAt)

	t.Run("by key", func(t *testing.T) {
		got, err := loadSummary(t.Context(), store, []string{repo.SummaryKey(startedAt)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.RunID != saved.RunID {
			t.Errorf("run_id mismatch: %s != %s", got.RunID, saved.RunID)
		}
	})

	t.Run("by run id", func(t *testing.T) {
		got, err := loadSummary(t.Context(), store, []string{saved.RunID.String()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.RunID != saved.RunID {
			t.Errorf("run_id mismatch: %s != %s", got.RunID, saved.RunID)
		}
	})

	t.Run("latest when no argument", func(t *testing.T) {
		got, err := loadSummary(t.Context(), store, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.RunID != saved.RunID {
			t.Errorf("run_id mismatch: %s != %s", got.RunID, saved.RunID)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		_, err := loadSummary(t.Context(), store, []string{uuid.NewString()})
		if !errors.Is(err, repo.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
