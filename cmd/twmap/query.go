package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jchantrell/twmap/internal/database"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [SQL]",
	Short: "Query results recorded by stats --database",
	Long: `Query lists recorded runs, shows the outcome counts of one run, or executes
an SQL query against the results database (tables: runs, files, item_types).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		listRuns, err := cmd.Flags().GetBool("runs")
		if err != nil {
			return fmt.Errorf("failed to get runs flag: %w", err)
		}
		runID, err := cmd.Flags().GetInt64("run")
		if err != nil {
			return fmt.Errorf("failed to get run flag: %w", err)
		}

		if cfg.Database == "" {
			return fmt.Errorf("no database configured, use --database or the database config key")
		}

		db, err := database.NewDatabase(ctx, database.DefaultDatabaseOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if listRuns {
			runs, err := db.Runs(ctx)
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			fmt.Fprintf(out, "%-6s %-32s %-32s %-8s\n", "Run", "Started", "Finished", "Files")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, r := range runs {
				fmt.Fprintf(out, "%-6d %-32s %-32s %-8d\n", r.ID, r.StartedAt, r.FinishedAt, r.Files)
			}
			return nil
		}

		if runID > 0 {
			run, err := db.OpenRun(ctx, runID)
			if err != nil {
				return err
			}
			counts, err := run.StatusCounts(ctx)
			if err != nil {
				return fmt.Errorf("counting results: %w", err)
			}

			fmt.Fprintf(out, "%-10s %-28s %-8s\n", "Status", "Kind", "Count")
			fmt.Fprintln(out, strings.Repeat("-", 48))
			for _, c := range counts {
				fmt.Fprintf(out, "%-10s %-28s %-8d\n", c.Status, c.ErrorKind, c.Count)
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("no query provided, use --runs to list runs or --run <id> to summarize one")
		}

		query := args[0]
		slog.Debug("Executing SQL query", "query", query)

		rows, err := db.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("getting column names: %w", err)
		}

		fmt.Fprintln(out, strings.Join(columns, "\t"))
		separators := make([]string, len(columns))
		for i, col := range columns {
			separators[i] = strings.Repeat("-", len(col))
		}
		fmt.Fprintln(out, strings.Join(separators, "\t"))

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(valuePtrs...); err != nil {
				return fmt.Errorf("scanning row: %w", err)
			}

			fields := make([]string, len(values))
			for i, val := range values {
				switch v := val.(type) {
				case nil:
					fields[i] = "NULL"
				case []byte:
					fields[i] = string(v)
				default:
					fields[i] = fmt.Sprint(v)
				}
			}
			fmt.Fprintln(out, strings.Join(fields, "\t"))
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating rows: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&dbPath, "database", "d", "", "results database file")
	queryCmd.Flags().Bool("runs", false, "List recorded runs")
	queryCmd.Flags().Int64("run", 0, "Show outcome counts for a run")
}
