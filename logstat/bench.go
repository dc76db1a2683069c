package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfumo/irc-stats/internal/bench"
	"github.com/cfumo/irc-stats/internal/logger"
)

var (
	benchSizes   string
	benchEngines string
	benchRuns    int
	benchSeed    int64
	benchOutput  string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the query engines",
	Long:  "Generates synthetic datasets and measures engine startup and representative queries, writing aggregated results as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sizes, err := parseSizes(benchSizes)
		if err != nil {
			return err
		}

		var engines []string
		for _, name := range strings.Split(benchEngines, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				engines = append(engines, trimmed)
			}
		}

		seed := benchSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		workDir, err := os.MkdirTemp("", "logstat-bench-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(workDir)

		results, err := bench.Run(cmd.Context(), bench.RunnerOptions{
			Engines:     engines,
			Sizes:       sizes,
			RunsPerTest: benchRuns,
			Seed:        seed,
			WorkDir:     workDir,
			Logger:      logger.New("bench"),
		})
		if err != nil {
			return err
		}

		if err := bench.WriteResults(benchOutput, results); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "benchmark results saved to %s\n", benchOutput)
		return nil
	},
}

func parseSizes(raw string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid dataset size %q", part)
		}
		sizes = append(sizes, size)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no dataset sizes given")
	}
	return sizes, nil
}

func init() {
	benchCmd.Flags().StringVar(&benchSizes, "dataset-sizes", "10000,100000", "comma-separated log entry counts")
	benchCmd.Flags().StringVar(&benchEngines, "compare-engines", "memory,sqlite-memory", "comma-separated engine names to benchmark")
	benchCmd.Flags().IntVar(&benchRuns, "runs-per-test", 3, "number of runs per benchmark test for averaging")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 0, "dataset seed (random when 0)")
	benchCmd.Flags().StringVar(&benchOutput, "output-results-file", "benchmark_results.json", "file to save benchmark results")
	rootCmd.AddCommand(benchCmd)
}
