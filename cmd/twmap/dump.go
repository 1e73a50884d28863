package main

import (
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump MAP",
	Short: "Print every item and a hex dump of every data entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openMap(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		return r.DebugDump(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
