package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cfumo/irc-stats/internal/bench"
	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/store"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseSizes(t *testing.T) {
	sizes, err := parseSizes("1000, 5000")
	require.NoError(t, err)
	require.Equal(t, []int{1000, 5000}, sizes)

	_, err = parseSizes("")
	require.Error(t, err)
	_, err = parseSizes("10,bogus")
	require.Error(t, err)
	_, err = parseSizes("-5")
	require.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	log := strings.Join([]string{
		"--- Log opened Tue Mar 14 08:00:00 2023",
		"09:00 <+cosmo> good morning",
		"09:05 < wyll> hello",
	}, "\n")

	out := filepath.Join(t.TempDir(), "log.json")
	_, err := runCommand(t, log, "parse", "irssi", "--output", out)
	require.NoError(t, err)

	msgs, err := store.LoadArchive(out)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "cosmo", msgs[0].Nick)
	require.Equal(t, "good morning", msgs[0].Message)
}

func TestParseCommandRejectsUnknownFormat(t *testing.T) {
	_, err := runCommand(t, "", "parse", "mirc")
	require.Error(t, err)
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.jsonl")
	out := filepath.Join(dir, "merged.json")

	require.NoError(t, store.SaveArchive(a, []models.Message{
		{Timestamp: 200, Nick: "wyll", Message: "second"},
	}))
	spool, err := store.OpenSpool(b)
	require.NoError(t, err)
	require.NoError(t, spool.Append(models.Message{Timestamp: 100, Nick: "cosmo", Message: "first"}))
	require.NoError(t, spool.Close())

	_, err = runCommand(t, "", "merge", a, b, "--output", out)
	require.NoError(t, err)

	msgs, err := store.LoadArchive(out)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Message)
	require.Equal(t, "second", msgs[1].Message)
}

func TestGenerateCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "generated.json")
	_, err := runCommand(t, "", "generate",
		"--num-entries", "50",
		"--start-date", "2023-01-01",
		"--end-date", "2023-01-31",
		"--num-nicks", "3",
		"--seed", "9",
		"--output-file", out)
	require.NoError(t, err)

	msgs, err := store.LoadArchive(out)
	require.NoError(t, err)
	require.Len(t, msgs, 50)
}

func TestSummarizeCommand(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.json")
	headPath := filepath.Join(dir, "head.json")

	results := &bench.Results{EngineBenchmarks: []bench.Summary{
		{Engine: "memory", DatasetSize: 100, Operation: "startup", AvgSeconds: 1, AvgHeapBytes: 1024, Runs: 3},
	}}
	require.NoError(t, bench.WriteResults(basePath, results))
	require.NoError(t, bench.WriteResults(headPath, results))

	out, err := runCommand(t, "", "summarize", basePath, headPath, "memory")
	require.NoError(t, err)
	require.Contains(t, out, "Benchmark Summary for Engine: memory")

	_, err = runCommand(t, "", "summarize", basePath, headPath, "elephant")
	require.Error(t, err)
}
