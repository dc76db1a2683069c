package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/nicks"
)

// Engine is the query layer behind the web server and the benchmark
// harness. Implementations must agree on results; the conformance suite in
// this package runs every registered engine against the same fixtures.
type Engine interface {
	// QueryLogs returns a per-day (or per-month, with Coarse) time series of
	// lines matching the regular expression. The series spans every bucket
	// between the first and last archived message, zero-filled.
	QueryLogs(ctx context.Context, pattern string, opts QueryOptions) ([]models.Point, error)

	// CountOccurrences counts lines matching the regular expression.
	CountOccurrences(ctx context.Context, pattern string, opts CountOptions) (int, error)

	// ValidDays returns the sorted days having at least one line.
	ValidDays(ctx context.Context) ([]models.Day, error)

	// LogsByDay returns the lines of one day plus its neighbouring valid days.
	LogsByDay(ctx context.Context, day models.Day) (DayLogs, error)

	// SearchDayLogs returns one page of matching lines, newest day first,
	// along with the total number of matches.
	SearchDayLogs(ctx context.Context, pattern string, ignoreCase bool, limit, offset int) ([]models.SearchHit, int, error)

	// SearchHistogram returns monthly match counts as a single zero-filled series.
	SearchHistogram(ctx context.Context, pattern string, ignoreCase bool) ([]models.Series, error)

	// Trending returns the words whose recent usage rate most exceeds their
	// all-time rate. The lookback window is anchored to the newest archived
	// message so results are stable for a static archive.
	Trending(ctx context.Context, opts TrendingOptions) ([]models.TrendingTerm, error)

	// Append adds messages to the archive.
	Append(ctx context.Context, msgs []models.Message) error

	Close() error
}

// QueryOptions control QueryLogs.
type QueryOptions struct {
	Nick          string
	IgnoreCase    bool
	Coarse        bool
	Cumulative    bool
	Normalize     bool
	NormalizeType string
}

// CountOptions control CountOccurrences.
type CountOptions struct {
	Nick       string
	IgnoreCase bool
}

// TrendingOptions control Trending.
type TrendingOptions struct {
	Top          int
	MinFreq      int
	LookbackDays int
}

// DayLogs is the LogsByDay result. Prev and Next are zero when the day has
// no valid neighbour.
type DayLogs struct {
	Lines []models.Message
	Prev  models.Day
	Next  models.Day
}

// Options configure Open.
type Options struct {
	Messages   []models.Message
	Nicks      *nicks.Table
	SQLitePath string
	BatchSize  int
	Logger     *slog.Logger
}

// Engine names accepted by Open, matching the names used by the benchmark
// harness and CI.
const (
	NameMemory       = "memory"
	NameSQLiteMemory = "sqlite-memory"
	NameSQLiteFile   = "sqlite-file"
)

// Open builds the named engine over the supplied archive.
func Open(name string, opts Options) (Engine, error) {
	if opts.Nicks == nil {
		opts.Nicks = nicks.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch name {
	case NameMemory:
		return NewMemory(opts), nil
	case NameSQLiteMemory:
		return NewSQLite(":memory:", opts)
	case NameSQLiteFile:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite-file engine needs a database path")
		}
		return NewSQLite(opts.SQLitePath, opts)
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// Names lists the engines Open accepts.
func Names() []string {
	return []string{NameMemory, NameSQLiteMemory, NameSQLiteFile}
}

// trailingWindow extracts N from a "trailing_avg_N" normalize type.
// Returns 0 for any other value.
func trailingWindow(normalizeType string) int {
	const prefix = "trailing_avg_"
	if !strings.HasPrefix(normalizeType, prefix) {
		return 0
	}
	n, err := strconv.Atoi(normalizeType[len(prefix):])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// bucketKeys enumerates the chart bucket keys between two days inclusive:
// one per day, or one per month when coarse.
func bucketKeys(first, last models.Day, coarse bool) []int64 {
	if first.IsZero() || last.IsZero() {
		return nil
	}

	var keys []int64
	var lastKey int64
	for d := first; !last.Before(d); d = d.Next() {
		key := d.Unix()
		if coarse {
			key = models.Day{Year: d.Year, Month: d.Month, Day: 1}.Unix()
		}
		if len(keys) > 0 && key == lastKey {
			continue
		}
		keys = append(keys, key)
		lastKey = key
	}
	return keys
}

// shapeSeries turns raw per-bucket matched/total counts into the chart
// series, applying cumulative and normalization options. Both engines feed
// their counts through here so their output is identical by construction.
//
// Normalization semantics:
//   - plain: each bucket's count divided by the total archive line count
//   - trailing_avg_N: trailing-window sum of matches over trailing-window
//     sum of the bucket totals
//   - with Cumulative, the running match count divided by the running total
func shapeSeries(keys []int64, matched, totals map[int64]float64, totalLines float64, opts QueryOptions) []models.Point {
	window := trailingWindow(opts.NormalizeType)

	points := make([]models.Point, 0, len(keys))
	var runningMatched, runningTotal float64
	var matchedWin, totalWin []float64

	for _, key := range keys {
		m := matched[key]
		tot := totals[key]
		runningMatched += m
		runningTotal += tot

		y := m
		if opts.Cumulative {
			y = runningMatched
		}

		if opts.Normalize {
			switch {
			case opts.Cumulative:
				y = ratio(runningMatched, runningTotal)
			case window > 0:
				matchedWin = append(matchedWin, m)
				totalWin = append(totalWin, tot)
				if len(matchedWin) > window {
					matchedWin = matchedWin[1:]
					totalWin = totalWin[1:]
				}
				y = ratio(sum(matchedWin), sum(totalWin))
			default:
				y = ratio(m, totalLines)
			}
		}

		points = append(points, models.Point{X: key, Y: y})
	}

	return points
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// monthKeys enumerates month-start keys between two days inclusive.
func monthKeys(first, last models.Day) []int64 {
	return bucketKeys(first, last, true)
}

// neighbours locates day within the sorted valid days and returns its
// previous and next entries. Both are zero when day itself is not valid.
func neighbours(valid []models.Day, day models.Day) (models.Day, models.Day) {
	for i, d := range valid {
		if d == day {
			var prev, next models.Day
			if i > 0 {
				prev = valid[i-1]
			}
			if i < len(valid)-1 {
				next = valid[i+1]
			}
			return prev, next
		}
	}
	return models.Day{}, models.Day{}
}
