package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/cfumo/irc-stats/internal/engine"
)

// Query is one representative operation run against every engine under test.
type Query struct {
	Name string
	Run  func(ctx context.Context, eng engine.Engine) error
}

// RepresentativeQueries covers the operation mix the web handlers produce.
// Patterns are chosen to hit the generator vocabulary.
func RepresentativeQueries() []Query {
	return []Query{
		{
			Name: "query_simple_keyword",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.QueryLogs(ctx, "request", engine.QueryOptions{})
				return err
			},
		},
		{
			Name: "query_regex_keyword",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.QueryLogs(ctx, `err[oa]r\w+`, engine.QueryOptions{IgnoreCase: true})
				return err
			},
		},
		{
			Name: "query_nick_filter",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.QueryLogs(ctx, "user", engine.QueryOptions{Nick: "User1"})
				return err
			},
		},
		{
			Name: "query_cumulative",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.QueryLogs(ctx, "response", engine.QueryOptions{Cumulative: true})
				return err
			},
		},
		{
			Name: "query_normalize",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.QueryLogs(ctx, "login", engine.QueryOptions{
					Normalize:     true,
					NormalizeType: "trailing_avg_1",
				})
				return err
			},
		},
		{
			Name: "count_simple_keyword",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.CountOccurrences(ctx, "file", engine.CountOptions{})
				return err
			},
		},
		{
			Name: "count_regex_keyword_ignore_case",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.CountOccurrences(ctx, `serv[ie]ce\d+`, engine.CountOptions{IgnoreCase: true})
				return err
			},
		},
		{
			Name: "get_valid_days",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, err := eng.ValidDays(ctx)
				return err
			},
		},
		{
			Name: "search_day_logs_simple",
			Run: func(ctx context.Context, eng engine.Engine) error {
				_, _, err := eng.SearchDayLogs(ctx, "database", false, 25, 0)
				return err
			},
		},
	}
}

// RunnerOptions configures a benchmark run.
type RunnerOptions struct {
	Engines     []string
	Sizes       []int
	RunsPerTest int
	BatchSize   int
	Seed        int64
	WorkDir     string // scratch space for file-backed engines
	Logger      *slog.Logger
}

// Measurement is the raw result of one timed operation.
type Measurement struct {
	Engine      string  `json:"engine"`
	DatasetSize int     `json:"dataset_size"`
	Run         int     `json:"run"`
	Operation   string  `json:"operation"`
	Seconds     float64 `json:"time_seconds"`
	HeapBytes   uint64  `json:"peak_memory_bytes"`
}

// Summary is the aggregated result for one (engine, size, operation) cell.
type Summary struct {
	Engine       string  `json:"engine"`
	DatasetSize  int     `json:"dataset_size"`
	Operation    string  `json:"operation"`
	AvgSeconds   float64 `json:"avg_time_seconds"`
	AvgHeapBytes float64 `json:"avg_peak_memory_bytes"`
	Runs         int     `json:"runs"`
}

// Results is the top-level document written to the results file.
type Results struct {
	GeneratedAt      time.Time `json:"generated_at"`
	Seed             int64     `json:"seed"`
	EngineBenchmarks []Summary `json:"engine_benchmarks"`
}

// Run benchmarks every configured engine against freshly generated datasets
// of every configured size, timing startup and each representative query.
func Run(ctx context.Context, opts RunnerOptions) (*Results, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	runs := opts.RunsPerTest
	if runs <= 0 {
		runs = 3
	}
	engines := opts.Engines
	if len(engines) == 0 {
		engines = engine.Names()
	}

	genStart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.Local)
	genEnd := time.Date(2023, 3, 31, 0, 0, 0, 0, time.Local)
	const numNicks = 50

	table, err := GeneratedNickTable(numNicks)
	if err != nil {
		return nil, err
	}
	queries := RepresentativeQueries()

	var raw []Measurement
	for sizeIdx, size := range opts.Sizes {
		log.Info("generating dataset", "size", size)
		msgs, err := Generate(GenerateOptions{
			Entries:   size,
			StartDate: genStart,
			EndDate:   genEnd,
			NumNicks:  numNicks,
			Seed:      opts.Seed + int64(sizeIdx),
		})
		if err != nil {
			return nil, fmt.Errorf("generate dataset of size %d: %w", size, err)
		}

		for _, name := range engines {
			log.Info("benchmarking engine", "engine", name, "size", size)
			for run := 1; run <= runs; run++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}

				engOpts := engine.Options{
					Messages:  msgs,
					Nicks:     table,
					BatchSize: opts.BatchSize,
					Logger:    log,
				}
				if name == engine.NameSQLiteFile {
					engOpts.SQLitePath = filepath.Join(opts.WorkDir,
						fmt.Sprintf("bench_%s_%d_%d.db", name, size, run))
				}

				var eng engine.Engine
				startup, err := measure(func() error {
					var openErr error
					eng, openErr = engine.Open(name, engOpts)
					return openErr
				})
				if err != nil {
					return nil, fmt.Errorf("open %s engine with %d entries: %w", name, size, err)
				}
				startup.Engine = name
				startup.DatasetSize = size
				startup.Run = run
				startup.Operation = "startup"
				raw = append(raw, startup)
				log.Debug("measured", "operation", "startup", "engine", name,
					"seconds", startup.Seconds, "heap_bytes", startup.HeapBytes)

				for _, q := range queries {
					m, err := measure(func() error { return q.Run(ctx, eng) })
					if err != nil {
						eng.Close()
						return nil, fmt.Errorf("run %s on %s: %w", q.Name, name, err)
					}
					m.Engine = name
					m.DatasetSize = size
					m.Run = run
					m.Operation = q.Name
					raw = append(raw, m)
					log.Debug("measured", "operation", q.Name, "engine", name,
						"seconds", m.Seconds, "heap_bytes", m.HeapBytes)
				}

				if err := eng.Close(); err != nil {
					log.Warn("closing engine", "engine", name, "error", err)
				}
				if engOpts.SQLitePath != "" {
					os.Remove(engOpts.SQLitePath)
				}
			}
		}
	}

	return &Results{
		GeneratedAt:      time.Now(),
		Seed:             opts.Seed,
		EngineBenchmarks: Aggregate(raw),
	}, nil
}

// measure times fn and records the heap growth it caused. A GC runs before
// the measurement so leftover garbage from earlier tests is not attributed
// to this one.
func measure(fn func() error) (Measurement, error) {
	runtime.GC()
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	runtime.ReadMemStats(&after)
	var heap uint64
	if after.HeapAlloc > before.HeapAlloc {
		heap = after.HeapAlloc - before.HeapAlloc
	}
	return Measurement{Seconds: elapsed.Seconds(), HeapBytes: heap}, err
}

// Aggregate averages raw measurements per (engine, size, operation) cell and
// sorts the result for stable output.
func Aggregate(raw []Measurement) []Summary {
	type cellKey struct {
		engine    string
		size      int
		operation string
	}
	type cell struct {
		seconds []float64
		heap    []float64
	}
	cells := make(map[cellKey]*cell)
	for _, m := range raw {
		key := cellKey{m.Engine, m.DatasetSize, m.Operation}
		c, ok := cells[key]
		if !ok {
			c = &cell{}
			cells[key] = c
		}
		c.seconds = append(c.seconds, m.Seconds)
		c.heap = append(c.heap, float64(m.HeapBytes))
	}

	summaries := make([]Summary, 0, len(cells))
	for key, c := range cells {
		summaries = append(summaries, Summary{
			Engine:       key.engine,
			DatasetSize:  key.size,
			Operation:    key.operation,
			AvgSeconds:   mean(c.seconds),
			AvgHeapBytes: mean(c.heap),
			Runs:         len(c.seconds),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.DatasetSize != b.DatasetSize {
			return a.DatasetSize < b.DatasetSize
		}
		if a.Engine != b.Engine {
			return a.Engine < b.Engine
		}
		return a.Operation < b.Operation
	})
	return summaries
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// WriteResults saves results as indented JSON.
func WriteResults(path string, results *Results) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal benchmark results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write benchmark results: %w", err)
	}
	return nil
}

// LoadResults reads a results file written by WriteResults.
func LoadResults(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode benchmark results %s: %w", path, err)
	}
	return &results, nil
}
