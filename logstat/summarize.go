package main

import (
	"github.com/spf13/cobra"

	"github.com/cfumo/irc-stats/internal/bench"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize base.json head.json engine-name",
	Short: "Compare two benchmark result files for one engine",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := bench.LoadResults(args[0])
		if err != nil {
			return err
		}
		head, err := bench.LoadResults(args[1])
		if err != nil {
			return err
		}
		return bench.WriteComparison(cmd.OutOrStdout(), base, head, args[2])
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}
