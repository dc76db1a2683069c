package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "logstat",
	Short:         "Tooling for the chat log archive",
	Long:          "logstat parses raw client logs, maintains the JSON archive and runs the query engine benchmarks.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
