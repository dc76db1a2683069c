package bench_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cfumo/irc-stats/internal/bench"
	"github.com/cfumo/irc-stats/internal/engine"
	"github.com/stretchr/testify/require"
)

func genOpts(entries int, seed int64) bench.GenerateOptions {
	return bench.GenerateOptions{
		Entries:   entries,
		StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.Local),
		EndDate:   time.Date(2023, 1, 31, 0, 0, 0, 0, time.Local),
		NumNicks:  5,
		Seed:      seed,
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := bench.Generate(genOpts(200, 42))
	require.NoError(t, err)
	b, err := bench.Generate(genOpts(200, 42))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := bench.Generate(genOpts(200, 43))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestGenerateShape(t *testing.T) {
	msgs, err := bench.Generate(genOpts(500, 1))
	require.NoError(t, err)
	require.Len(t, msgs, 500)

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.Local).Unix()
	end := time.Date(2023, 1, 31, 0, 0, 0, 0, time.Local).Unix()
	names := bench.GeneratedNicks(5)

	for i, msg := range msgs {
		require.GreaterOrEqual(t, msg.Timestamp, start)
		require.Less(t, msg.Timestamp, end)
		require.Contains(t, names, msg.Nick)
		require.NotEmpty(t, msg.Message)
		if i > 0 {
			require.GreaterOrEqual(t, msg.Timestamp, msgs[i-1].Timestamp)
		}
	}
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	_, err := bench.Generate(genOpts(0, 1))
	require.Error(t, err)

	opts := genOpts(10, 1)
	opts.StartDate, opts.EndDate = opts.EndDate, opts.StartDate
	_, err = bench.Generate(opts)
	require.Error(t, err)
}

func TestGeneratedNickTable(t *testing.T) {
	table, err := bench.GeneratedNickTable(3)
	require.NoError(t, err)
	require.Equal(t, []string{"User1", "User2", "User3"}, table.Names())
	require.True(t, table.Matches("User2", "user2"))
}

func TestRunProducesAggregates(t *testing.T) {
	results, err := bench.Run(context.Background(), bench.RunnerOptions{
		Engines:     []string{engine.NameMemory, engine.NameSQLiteMemory},
		Sizes:       []int{100},
		RunsPerTest: 2,
		Seed:        7,
		WorkDir:     t.TempDir(),
	})
	require.NoError(t, err)

	// startup plus nine representative queries, per engine.
	require.Len(t, results.EngineBenchmarks, 2*10)

	seen := make(map[string]bool)
	for _, s := range results.EngineBenchmarks {
		require.Equal(t, 100, s.DatasetSize)
		require.Equal(t, 2, s.Runs)
		require.GreaterOrEqual(t, s.AvgSeconds, 0.0)
		seen[s.Engine+"/"+s.Operation] = true
	}
	require.True(t, seen[engine.NameMemory+"/startup"])
	require.True(t, seen[engine.NameSQLiteMemory+"/query_simple_keyword"])
	require.True(t, seen[engine.NameMemory+"/search_day_logs_simple"])
}

func TestResultsRoundTrip(t *testing.T) {
	results := &bench.Results{
		GeneratedAt: time.Now().Truncate(time.Second),
		Seed:        3,
		EngineBenchmarks: []bench.Summary{
			{Engine: "memory", DatasetSize: 100, Operation: "startup", AvgSeconds: 0.01, AvgHeapBytes: 2048, Runs: 3},
		},
	}

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, bench.WriteResults(path, results))

	loaded, err := bench.LoadResults(path)
	require.NoError(t, err)
	require.Equal(t, results.Seed, loaded.Seed)
	require.Equal(t, results.EngineBenchmarks, loaded.EngineBenchmarks)
}

func TestAggregateAverages(t *testing.T) {
	raw := []bench.Measurement{
		{Engine: "memory", DatasetSize: 10, Run: 1, Operation: "startup", Seconds: 1.0, HeapBytes: 100},
		{Engine: "memory", DatasetSize: 10, Run: 2, Operation: "startup", Seconds: 3.0, HeapBytes: 300},
		{Engine: "sqlite-memory", DatasetSize: 10, Run: 1, Operation: "startup", Seconds: 2.0, HeapBytes: 50},
	}

	summaries := bench.Aggregate(raw)
	require.Len(t, summaries, 2)

	require.Equal(t, "memory", summaries[0].Engine)
	require.InDelta(t, 2.0, summaries[0].AvgSeconds, 1e-9)
	require.InDelta(t, 200.0, summaries[0].AvgHeapBytes, 1e-9)
	require.Equal(t, 2, summaries[0].Runs)

	require.Equal(t, "sqlite-memory", summaries[1].Engine)
	require.Equal(t, 1, summaries[1].Runs)
}

func TestWriteComparison(t *testing.T) {
	base := &bench.Results{EngineBenchmarks: []bench.Summary{
		{Engine: "sqlite-memory", DatasetSize: 100, Operation: "startup", AvgSeconds: 1.0, AvgHeapBytes: 1 << 20, Runs: 3},
		{Engine: "sqlite-memory", DatasetSize: 100, Operation: "query_simple_keyword", AvgSeconds: 0.5, AvgHeapBytes: 1 << 19, Runs: 3},
	}}
	head := &bench.Results{EngineBenchmarks: []bench.Summary{
		{Engine: "sqlite-memory", DatasetSize: 100, Operation: "startup", AvgSeconds: 2.0, AvgHeapBytes: 2 << 20, Runs: 3},
		{Engine: "sqlite-memory", DatasetSize: 100, Operation: "query_simple_keyword", AvgSeconds: 0.25, AvgHeapBytes: 1 << 19, Runs: 3},
	}}

	var buf bytes.Buffer
	require.NoError(t, bench.WriteComparison(&buf, base, head, "sqlite-memory"))

	out := buf.String()
	require.Contains(t, out, "sqlite-memory")
	require.Contains(t, out, "Dataset Size: 100 entries")
	require.Contains(t, out, "startup")
	require.Contains(t, out, "+100.00%")
	require.Contains(t, out, "-50.00%")
}

func TestWriteComparisonUnknownEngine(t *testing.T) {
	var buf bytes.Buffer
	err := bench.WriteComparison(&buf, &bench.Results{}, &bench.Results{}, "nope")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "nope"))
}
