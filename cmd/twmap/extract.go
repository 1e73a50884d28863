package main

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/twmap/internal/export"
	"github.com/jchantrell/twmap/internal/utils"
	"github.com/spf13/cobra"
)

var outputDir string

var extractCmd = &cobra.Command{
	Use:   "extract MAP",
	Short: "Write every data entry of a map to a directory",
	Long: `Extract reads each data entry of MAP (decompressing version 4 payloads) and
writes it to OUTPUT/data_NNNN.bin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openMap(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		progress := utils.NewProgress(r.NumData(), progressEnabled())
		results, err := export.NewExporter(outputDir).ExportData(r, func(current, total int, description string) {
			progress.Increment(description)
		})
		progress.Finish()
		if err != nil {
			return fmt.Errorf("extracting %s: %w", args[0], err)
		}

		var written int64
		for _, res := range results {
			written += int64(res.Size)
		}
		slog.Info("Extracted data entries",
			"map", args[0],
			"count", len(results),
			"bytes", utils.Bytes(written),
			"output", outputDir)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	extractCmd.MarkFlagRequired("output")
}
