package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfumo/irc-stats/internal/bench"
)

var (
	genEntries int
	genStart   string
	genEnd     string
	genNicks   int
	genSeed    int64
	genOutput  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic archive for benchmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := time.ParseInLocation("2006-01-02", genStart, time.Local)
		if err != nil {
			return fmt.Errorf("parse start date: %w", err)
		}
		end, err := time.ParseInLocation("2006-01-02", genEnd, time.Local)
		if err != nil {
			return fmt.Errorf("parse end date: %w", err)
		}

		msgs, err := bench.Generate(bench.GenerateOptions{
			Entries:   genEntries,
			StartDate: start,
			EndDate:   end,
			NumNicks:  genNicks,
			Seed:      genSeed,
		})
		if err != nil {
			return err
		}
		return writeMessages(cmd, genOutput, msgs)
	},
}

func init() {
	generateCmd.Flags().IntVar(&genEntries, "num-entries", 0, "total number of log entries to generate")
	generateCmd.Flags().StringVar(&genStart, "start-date", "", "start date for log entries (YYYY-MM-DD)")
	generateCmd.Flags().StringVar(&genEnd, "end-date", "", "end date for log entries (YYYY-MM-DD)")
	generateCmd.Flags().IntVar(&genNicks, "num-nicks", 10, "number of unique nicks")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "seed for the random number generator")
	generateCmd.Flags().StringVar(&genOutput, "output-file", "", "path to save the generated archive (stdout when empty)")
	generateCmd.MarkFlagRequired("num-entries")
	generateCmd.MarkFlagRequired("start-date")
	generateCmd.MarkFlagRequired("end-date")
	rootCmd.AddCommand(generateCmd)
}
