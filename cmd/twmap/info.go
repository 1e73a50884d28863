package main

import (
	"fmt"

	"github.com/jchantrell/twmap/internal/stats"
	"github.com/jchantrell/twmap/internal/utils"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info MAP",
	Short: "Print the header and item type table of a map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openMap(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		info := stats.Inspect(r)
		h := r.Header()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "version: %s\n", info.Version)
		fmt.Fprintf(out, "size: %s\n", utils.Number(h.Size))
		fmt.Fprintf(out, "item types: %d\n", len(info.ItemTypes))
		fmt.Fprintf(out, "items: %s\n", utils.Number(info.NumItems))
		fmt.Fprintf(out, "data: %s (%s)\n", utils.Number(info.NumData), utils.Bytes(info.DataBytes))

		if len(info.ItemTypes) == 0 {
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "%-10s %-10s %-10s\n", "Type", "Start", "Num")
		for _, t := range info.ItemTypes {
			fmt.Fprintf(out, "%-10d %-10d %-10d\n", t.ID, t.Start, t.Num)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
