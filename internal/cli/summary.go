package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Cohort/internal/domain"
)

// Store — источник сводок для команд summary. Реализуется файловым
// каталогом (repo.FileSummaryStore) и PostgreSQL (repo.SummaryRepo).
type Store interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string) (*domain.AggregateSummary, error)
	GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.AggregateSummary, error)
	Latest(ctx context.Context) (*domain.AggregateSummary, error)
}

// NewSummaryCmd создаёт группу команд для просмотра сводок запусков.
func NewSummaryCmd(storeFn func() (Store, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Inspect saved run summaries",
	}

	cmd.AddCommand(
		newSummaryListCmd(storeFn, outputFn),
		newSummaryShowCmd(storeFn, outputFn),
	)

	return cmd
}

func newSummaryListCmd(storeFn func() (Store, error), outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved run summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFn()
			if err != nil {
				return err
			}
			out := outputFn()

			keys, err := store.Keys(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(keys) > limit {
				keys = keys[:limit]
			}

			headers := []string{"KEY", "RUN_ID", "ACCOUNTS", "COMPLETED", "FAILED", "SUCCESS_RATE", "DURATION"}
			rows := make([][]string, 0, len(keys))
			jsonData := make([]any, 0, len(keys))

			for _, key := range keys {
				s, err := store.Get(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("load summary %s: %w", key, err)
				}
				rows = append(rows, []string{
					key,
					s.RunID.String(),
					strconv.Itoa(s.Accounts),
					strconv.Itoa(s.Completed),
					strconv.Itoa(s.Failed),
					formatRate(s.SuccessRate),
					formatDuration(s.Duration()),
				})
				jsonData = append(jsonData, s)
			}

			out.Print(headers, rows, jsonData)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newSummaryShowCmd(storeFn func() (Store, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [KEY|RUN_ID]",
		Short: "Show one run summary (latest if argument omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFn()
			if err != nil {
				return err
			}
			out := outputFn()

			s, err := loadSummary(cmd.Context(), store, args)
			if err != nil {
				return err
			}

			headers := []string{"ACCOUNT", "LABEL", "STATUS", "TASKS_OK", "TASKS_FAILED", "RETRIES", "ERROR"}
			rows := make([][]string, 0, len(s.Summaries))
			for i := range s.Summaries {
				acc := &s.Summaries[i]
				rows = append(rows, []string{
					acc.Address,
					acc.Label,
					string(acc.Status),
					strconv.Itoa(acc.Metrics.TasksCompleted),
					strconv.Itoa(acc.Metrics.TasksFailed),
					strconv.Itoa(acc.Metrics.Retries),
					acc.Error,
				})
			}

			out.Success(fmt.Sprintf("Run %s: %d/%d accounts completed (%s)",
				s.RunID, s.Completed, s.Accounts, formatRate(s.SuccessRate)))
			out.Print(headers, rows, s)
			return nil
		},
	}

	return cmd
}

// loadSummary возвращает сводку по ключу, по run ID (аргумент в виде
// UUID) или последнюю сохранённую, если аргумент не задан.
func loadSummary(ctx context.Context, store Store, args []string) (*domain.AggregateSummary, error) {
	if len(args) == 0 {
		return store.Latest(ctx)
	}
	if runID, err := uuid.Parse(args[0]); err == nil {
		return store.GetByRunID(ctx, runID)
	}
	return store.Get(ctx, args[0])
}
