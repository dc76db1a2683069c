package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/store"
)

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge a.json b.json ...",
	Short: "Merge archives and spools into one sorted archive",
	Long:  "Merges JSON archives and JSONL spool files (detected by extension) into a single chronologically sorted archive.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sets [][]models.Message
		for _, path := range args {
			var (
				msgs []models.Message
				err  error
			)
			if strings.HasSuffix(path, ".jsonl") {
				msgs, err = store.LoadSpool(path)
			} else {
				msgs, err = store.LoadArchive(path)
			}
			if err != nil {
				return err
			}
			sets = append(sets, msgs)
		}
		return writeMessages(cmd, mergeOutput, store.Merge(sets...))
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "write merged archive to this file instead of stdout")
	rootCmd.AddCommand(mergeCmd)
}
