// Cohort CLI — инструмент оператора: просмотр сохранённых сводок
// запусков и проверка файлов аккаунтов.
//
// Использование:
//
//	cohort [--summaries-dir DIR] [--db] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	summary   Сводки запусков
//	accounts  Проверка файлов аккаунтов
//
// Сводки читаются из файлового каталога; с флагом --db — из
// PostgreSQL по DB_URL.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cohort/internal/cli"
	"github.com/shaiso/Cohort/internal/repo"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var summariesDir string
	var useDB bool
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "cohort",
		Short:         "Cohort CLI — fleet automation operator tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&summariesDir, "summaries-dir", "summaries", "Run summaries directory")
	rootCmd.PersistentFlags().BoolVar(&useDB, "db", false, "Read summaries from PostgreSQL (DB_URL) instead of the directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	storeFn := func() (cli.Store, error) {
		if useDB {
			pool, err := repo.NewPool(context.Background())
			if err != nil {
				return nil, fmt.Errorf("connect to database: %w", err)
			}
			return repo.NewSummaryRepo(pool), nil
		}
		return repo.NewFileSummaryStore(summariesDir)
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewSummaryCmd(storeFn, outputFn),
		cli.NewAccountsCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
