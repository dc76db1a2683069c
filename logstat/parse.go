package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/parse"
	"github.com/cfumo/irc-stats/internal/store"
)

var parseOutput string

var parseCmd = &cobra.Command{
	Use:   "parse [irssi|weechat] [files...]",
	Short: "Parse raw client logs into archive JSON",
	Long:  "Parses irssi or weechat log files (or stdin when no files are given) and writes the messages as sorted archive JSON.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := parse.Format(args[0])
		switch format {
		case parse.FormatIrssi, parse.FormatWeechat:
		default:
			return fmt.Errorf("unknown format %q, want irssi or weechat", args[0])
		}

		var sets [][]models.Message
		if len(args) == 1 {
			msgs, err := parse.Reader(format, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sets = append(sets, msgs)
		}
		for _, path := range args[1:] {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			msgs, err := parse.Reader(format, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			sets = append(sets, msgs)
		}

		return writeMessages(cmd, parseOutput, store.Merge(sets...))
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "write archive JSON to this file instead of stdout")
	rootCmd.AddCommand(parseCmd)
}

func writeMessages(cmd *cobra.Command, path string, msgs []models.Message) error {
	if path != "" {
		return store.SaveArchive(path, msgs)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(msgs)
}
