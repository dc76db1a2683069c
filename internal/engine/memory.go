package engine

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/nicks"
	"github.com/cfumo/irc-stats/internal/textproc"
)

// Memory keeps the whole archive in a sorted slice and scans it per query.
// Startup is just a sort, which is what the benchmark harness compares
// against the SQLite engines' load+index cost.
type Memory struct {
	mu    sync.RWMutex
	msgs  []models.Message
	byDay map[models.Day][]models.Message
	days  []models.Day
	nicks *nicks.Table
	log   *slog.Logger
}

// NewMemory builds the in-memory engine over the supplied archive.
func NewMemory(opts Options) *Memory {
	msgs := make([]models.Message, len(opts.Messages))
	copy(msgs, opts.Messages)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })

	m := &Memory{
		msgs:  msgs,
		nicks: opts.Nicks,
		log:   opts.Logger,
	}
	m.reindex()
	return m
}

// reindex rebuilds the per-day index. Callers hold the write lock (or are
// the constructor).
func (m *Memory) reindex() {
	m.byDay = make(map[models.Day][]models.Message)
	for _, msg := range m.msgs {
		day := msg.DayKey()
		m.byDay[day] = append(m.byDay[day], msg)
	}

	m.days = m.days[:0]
	for day := range m.byDay {
		m.days = append(m.days, day)
	}
	sort.Slice(m.days, func(i, j int) bool { return m.days[i].Before(m.days[j]) })
}

func (m *Memory) compile(pattern string, ignoreCase bool) *regexp.Regexp {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Bad patterns come straight from user input; they yield empty
		// results rather than errors.
		m.log.Warn("invalid query regexp", slog.String("pattern", pattern), slog.Any("err", err))
		return nil
	}
	return re
}

// nickMatcher returns a predicate for the canonical nick filter. A filter
// for an unknown canonical name matches nothing.
func (m *Memory) nickMatcher(nick string) func(models.Message) bool {
	if nick == "" {
		return func(models.Message) bool { return true }
	}
	if !m.nicks.Known(nick) {
		return func(models.Message) bool { return false }
	}
	return func(msg models.Message) bool { return m.nicks.Matches(nick, msg.Nick) }
}

func (m *Memory) QueryLogs(_ context.Context, pattern string, opts QueryOptions) ([]models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.msgs) == 0 {
		return nil, nil
	}

	re := m.compile(pattern, opts.IgnoreCase)
	if re == nil {
		return nil, nil
	}
	inNick := m.nickMatcher(opts.Nick)

	matched := make(map[int64]float64)
	totals := make(map[int64]float64)
	for _, msg := range m.msgs {
		if !inNick(msg) {
			continue
		}
		day := msg.DayKey()
		key := day.Unix()
		if opts.Coarse {
			key = models.Day{Year: day.Year, Month: day.Month, Day: 1}.Unix()
		}
		totals[key]++
		if re.MatchString(msg.Message) {
			matched[key]++
		}
	}

	keys := bucketKeys(m.days[0], m.days[len(m.days)-1], opts.Coarse)
	return shapeSeries(keys, matched, totals, float64(len(m.msgs)), opts), nil
}

func (m *Memory) CountOccurrences(_ context.Context, pattern string, opts CountOptions) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	re := m.compile(pattern, opts.IgnoreCase)
	if re == nil {
		return 0, nil
	}
	inNick := m.nickMatcher(opts.Nick)

	total := 0
	for _, msg := range m.msgs {
		if inNick(msg) && re.MatchString(msg.Message) {
			total++
		}
	}
	return total, nil
}

func (m *Memory) ValidDays(_ context.Context) ([]models.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Day, len(m.days))
	copy(out, m.days)
	return out, nil
}

func (m *Memory) LogsByDay(_ context.Context, day models.Day) (DayLogs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := m.byDay[day]
	out := DayLogs{Lines: make([]models.Message, len(lines))}
	copy(out.Lines, lines)
	out.Prev, out.Next = neighbours(m.days, day)
	return out, nil
}

func (m *Memory) SearchDayLogs(_ context.Context, pattern string, ignoreCase bool, limit, offset int) ([]models.SearchHit, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	re := m.compile(pattern, ignoreCase)
	if re == nil {
		return nil, 0, nil
	}

	var hits []models.SearchHit
	for i := len(m.days) - 1; i >= 0; i-- {
		day := m.days[i]
		for index, msg := range m.byDay[day] {
			span := re.FindStringIndex(msg.Message)
			if span == nil {
				continue
			}
			hits = append(hits, models.SearchHit{
				Day:   day,
				Index: index,
				Line:  msg,
				Start: span[0],
				End:   span[1],
			})
		}
	}

	total := len(hits)
	return pageHits(hits, limit, offset), total, nil
}

func (m *Memory) SearchHistogram(_ context.Context, pattern string, ignoreCase bool) ([]models.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	empty := []models.Series{{Key: "", Values: []models.Point{}}}
	if len(m.msgs) == 0 {
		return empty, nil
	}

	re := m.compile(pattern, ignoreCase)
	if re == nil {
		return empty, nil
	}

	counts := make(map[int64]float64)
	for _, msg := range m.msgs {
		if !re.MatchString(msg.Message) {
			continue
		}
		day := msg.DayKey()
		counts[models.Day{Year: day.Year, Month: day.Month, Day: 1}.Unix()]++
	}

	keys := monthKeys(m.days[0], m.days[len(m.days)-1])
	values := make([]models.Point, 0, len(keys))
	for _, key := range keys {
		values = append(values, models.Point{X: key, Y: counts[key]})
	}
	return []models.Series{{Key: "", Values: values}}, nil
}

func (m *Memory) Trending(_ context.Context, opts TrendingOptions) ([]models.TrendingTerm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.msgs) == 0 {
		return nil, nil
	}

	newest := m.msgs[len(m.msgs)-1].Timestamp
	cutoff := newest - int64(opts.LookbackDays)*24*60*60

	all := make([]string, 0, len(m.msgs))
	var recent []string
	for _, msg := range m.msgs {
		all = append(all, msg.Message)
		if msg.Timestamp >= cutoff {
			recent = append(recent, msg.Message)
		}
	}

	return scoreTrending(textproc.WordFreqs(all, 0), textproc.WordFreqs(recent, 0), opts), nil
}

// scoreTrending ranks words by the relative increase of their recent usage
// rate over their all-time rate. Shared between engines via the fixtures in
// the conformance suite: the SQLite engine computes the same quantity in SQL.
func scoreTrending(allFreqs, recentFreqs map[string]int, opts TrendingOptions) []models.TrendingTerm {
	totalAll := 0
	for _, count := range allFreqs {
		totalAll += count
	}
	totalRecent := 0
	for _, count := range recentFreqs {
		totalRecent += count
	}
	if totalAll == 0 || totalRecent == 0 {
		return nil
	}

	var terms []models.TrendingTerm
	for word, recentCount := range recentFreqs {
		if recentCount < opts.MinFreq {
			continue
		}
		allCount := allFreqs[word]
		if allCount == 0 {
			continue
		}
		allRate := float64(allCount) / float64(totalAll)
		recentRate := float64(recentCount) / float64(totalRecent)
		terms = append(terms, models.TrendingTerm{
			Word:  word,
			Score: (recentRate - allRate) / allRate,
		})
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		return terms[i].Word < terms[j].Word
	})

	if opts.Top > 0 && len(terms) > opts.Top {
		terms = terms[:opts.Top]
	}
	return terms
}

func (m *Memory) Append(_ context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.msgs = append(m.msgs, msgs...)
	sort.SliceStable(m.msgs, func(i, j int) bool { return m.msgs[i].Timestamp < m.msgs[j].Timestamp })
	m.reindex()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// pageHits applies limit/offset pagination to a hit list.
func pageHits(hits []models.SearchHit, limit, offset int) []models.SearchHit {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(hits) {
		return nil
	}
	hits = hits[offset:]
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
