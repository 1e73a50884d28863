package main

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/twmap/internal/database"
	"github.com/jchantrell/twmap/internal/stats"
	"github.com/jchantrell/twmap/internal/utils"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats MAP...",
	Short: "Open every map and tally the failures",
	Long: `Stats opens each map on its own and prints "path: error" for every map that
fails. It then prints one line per distinct format error with its count, each
storage error, the number of maps that opened cleanly, and a summary of the
readable maps: versions, items per item type and payload totals.

With --verify-data every data entry is read as well, so corrupt payloads count
as failures. With --database every outcome is also stored in a SQLite file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts := stats.Options{
			Jobs:       cfg.Jobs,
			VerifyData: cfg.VerifyData,
			Progress:   progressEnabled(),
			Open:       openMap,
		}

		var run *database.Run
		if cfg.Database != "" {
			db, err := database.NewDatabase(ctx, database.DefaultDatabaseOptions(cfg.Database))
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			run, err = db.StartRun(ctx)
			if err != nil {
				return err
			}
			opts.Run = run
		}

		slog.Info("Processing maps", "count", len(args), "jobs", opts.Jobs, "verify_data", opts.VerifyData)

		report, err := stats.NewRunner(opts).Run(ctx, args)
		if err != nil {
			return fmt.Errorf("processing maps: %w", err)
		}

		if err := report.Print(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}

		var rate float64
		if seconds := report.Duration.Seconds(); seconds > 0 {
			rate = float64(report.Errors.Total()) / seconds
		}
		slog.Info("Finished",
			"ok", report.Errors.OK,
			"failed", report.Errors.Failed(),
			"duration", utils.Duration(report.Duration),
			"rate", utils.Rate(rate)+" maps/sec")

		if run != nil {
			if err := run.Finish(ctx); err != nil {
				return err
			}
			slog.Info("Recorded results", "database", cfg.Database, "run_id", run.ID())
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "number of maps processed in parallel")
	statsCmd.Flags().StringVarP(&dbPath, "database", "d", "", "record results in this SQLite file")
	statsCmd.Flags().BoolVar(&verifyData, "verify-data", false, "read every data entry")
}
