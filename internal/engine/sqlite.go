package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	sqlite3 "modernc.org/sqlite"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/nicks"
	"github.com/cfumo/irc-stats/internal/textproc"
)

// reCache caches compiled patterns for the SQL regexp() function. Patterns
// come from a small set of user queries, so a flat cap is enough to stop
// unbounded growth.
var reCache = struct {
	sync.Mutex
	compiled map[string]*regexp.Regexp
}{compiled: make(map[string]*regexp.Regexp)}

func cachedRegexp(pattern string) (*regexp.Regexp, error) {
	reCache.Lock()
	defer reCache.Unlock()

	if re, ok := reCache.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if len(reCache.compiled) > 1000 {
		reCache.compiled = make(map[string]*regexp.Regexp)
	}
	reCache.compiled[pattern] = re
	return re, nil
}

func init() {
	// regexp(pattern, text) backs the REGEXP operator. The driver has no
	// native one, and registering the Go implementation keeps match
	// semantics identical to the in-memory engine.
	sqlite3.MustRegisterDeterministicScalarFunction("regexp", 2,
		func(ctx *sqlite3.FunctionContext, args []driver.Value) (driver.Value, error) {
			pattern, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("regexp: pattern must be text")
			}
			text, ok := args[1].(string)
			if !ok {
				return int64(0), nil
			}
			re, err := cachedRegexp(pattern)
			if err != nil {
				return nil, fmt.Errorf("regexp: %w", err)
			}
			if re.MatchString(text) {
				return int64(1), nil
			}
			return int64(0), nil
		})

	// clean_word mirrors textproc.CleanWord so the words table built in SQL
	// counts exactly the tokens the in-memory engine counts.
	sqlite3.MustRegisterDeterministicScalarFunction("clean_word", 1,
		func(ctx *sqlite3.FunctionContext, args []driver.Value) (driver.Value, error) {
			word, ok := args[0].(string)
			if !ok {
				return "", nil
			}
			return textproc.CleanWord(word), nil
		})
}

// SQLite answers queries from an embedded SQLite database, either
// in-memory or file-backed. Messages are bulk-loaded in batches and the
// derived tables (per-nick daily totals, the word index, the alias table)
// are rebuilt after every load.
type SQLite struct {
	db        *sql.DB
	nicks     *nicks.Table
	log       *slog.Logger
	batchSize int
}

// NewSQLite opens the engine at the given path (":memory:" for the
// sqlite-memory flavour) and loads the archive.
func NewSQLite(path string, opts Options) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: sqlite has a single writer, and a pooled second
	// connection to a :memory: DSN would see a different database.
	db.SetMaxOpenConns(1)

	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1000
	}

	e := &SQLite{db: db, nicks: opts.Nicks, log: opts.Logger, batchSize: batch}

	if err := e.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := e.load(opts.Messages); err != nil {
		db.Close()
		return nil, err
	}
	if err := e.buildDerived(); err != nil {
		db.Close()
		return nil, err
	}

	return e, nil
}

func (e *SQLite) createSchema() error {
	stmts := []string{
		`DROP TABLE IF EXISTS logs`,
		`DROP TABLE IF EXISTS totals_fine`,
		`DROP TABLE IF EXISTS words`,
		`DROP TABLE IF EXISTS valid_nicks`,
		`CREATE TABLE logs (
			timestamp INTEGER NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			day INTEGER NOT NULL,
			nick TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX logs_idx_date ON logs (year, month, day)`,
		`CREATE TABLE valid_nicks (nick TEXT NOT NULL, alias TEXT NOT NULL)`,
	}

	for _, stmt := range stmts {
		if _, err := e.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	for _, name := range e.nicks.Names() {
		for _, alias := range e.nicks.Aliases(name) {
			if _, err := e.db.Exec(`INSERT INTO valid_nicks (nick, alias) VALUES (?, ?)`, name, alias); err != nil {
				return fmt.Errorf("fill valid_nicks: %w", err)
			}
		}
	}

	return nil
}

func (e *SQLite) load(msgs []models.Message) error {
	sorted := make([]models.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	for start := 0; start < len(sorted); start += e.batchSize {
		end := start + e.batchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		if err := e.insertBatch(sorted[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *SQLite) insertBatch(batch []models.Message) error {
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO logs (timestamp, year, month, day, nick, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range batch {
		day := msg.DayKey()
		if _, err := stmt.Exec(msg.Timestamp, day.Year, day.Month, day.Day, msg.Nick, msg.Message); err != nil {
			return fmt.Errorf("insert log line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// buildDerived rebuilds the aggregate tables queries read from.
func (e *SQLite) buildDerived() error {
	stmts := []string{
		`DROP TABLE IF EXISTS totals_fine`,
		`CREATE TABLE totals_fine AS
			SELECT LOWER(nick) AS nick, year, month, day, COUNT(*) AS count
			FROM logs
			GROUP BY 1, 2, 3, 4`,
		`CREATE INDEX totals_fine_idx_date ON totals_fine (year, month, day)`,
		`DROP TABLE IF EXISTS words`,
		`CREATE TABLE words AS
			WITH RECURSIVE splitter (timestamp, word, remaining) AS (
				SELECT
					timestamp,
					CASE WHEN message LIKE '% %'
						THEN SUBSTR(message, 1, INSTR(message, ' ') - 1)
						ELSE message END,
					CASE WHEN message LIKE '% %'
						THEN SUBSTR(message, INSTR(message, ' ') + 1)
						ELSE '' END
				FROM logs
				UNION ALL
				SELECT
					timestamp,
					CASE WHEN remaining LIKE '% %'
						THEN SUBSTR(remaining, 1, INSTR(remaining, ' ') - 1)
						ELSE remaining END,
					CASE WHEN remaining LIKE '% %'
						THEN SUBSTR(remaining, INSTR(remaining, ' ') + 1)
						ELSE '' END
				FROM splitter
				WHERE remaining <> ''
			)
			SELECT timestamp, clean_word(word) AS word, COUNT(*) AS count
			FROM splitter
			WHERE clean_word(word) <> ''
			GROUP BY 1, 2`,
		`CREATE INDEX words_idx_timestamp ON words (timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := e.db.Exec(stmt); err != nil {
			return fmt.Errorf("build derived tables: %w", err)
		}
	}
	return nil
}

// compile validates the pattern up front so a bad one never reaches the
// SQL layer, mirroring the in-memory engine's empty-result behavior.
func (e *SQLite) compile(pattern string, ignoreCase bool) *regexp.Regexp {
	full := pattern
	if ignoreCase {
		full = "(?i)" + pattern
	}
	re, err := cachedRegexp(full)
	if err != nil {
		e.log.Warn("invalid query regexp", slog.String("pattern", pattern), slog.Any("err", err))
		return nil
	}
	return re
}

func sqlPattern(pattern string, ignoreCase bool) string {
	if ignoreCase {
		return "(?i)" + pattern
	}
	return pattern
}

func (e *SQLite) bounds(ctx context.Context) (models.Day, models.Day, error) {
	var first, last models.Day
	err := e.db.QueryRowContext(ctx,
		`SELECT year, month, day FROM logs ORDER BY timestamp ASC LIMIT 1`).
		Scan(&first.Year, &first.Month, &first.Day)
	if err == sql.ErrNoRows {
		return models.Day{}, models.Day{}, nil
	}
	if err != nil {
		return models.Day{}, models.Day{}, fmt.Errorf("first day: %w", err)
	}

	err = e.db.QueryRowContext(ctx,
		`SELECT year, month, day FROM logs ORDER BY timestamp DESC LIMIT 1`).
		Scan(&last.Year, &last.Month, &last.Day)
	if err != nil {
		return models.Day{}, models.Day{}, fmt.Errorf("last day: %w", err)
	}

	return first, last, nil
}

func (e *SQLite) QueryLogs(ctx context.Context, pattern string, opts QueryOptions) ([]models.Point, error) {
	if e.compile(pattern, opts.IgnoreCase) == nil {
		return nil, nil
	}

	first, last, err := e.bounds(ctx)
	if err != nil {
		return nil, err
	}
	if first.IsZero() {
		return nil, nil
	}

	var totalLines float64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&totalLines); err != nil {
		return nil, fmt.Errorf("count lines: %w", err)
	}

	matchedSQL := fmt.Sprintf(
		`SELECT logs.year, logs.month, %s, COUNT(*)
		 FROM logs %s
		 WHERE regexp(?, logs.message) %s
		 GROUP BY 1, 2, 3`,
		dayColumn("logs", opts.Coarse), nickJoin(opts.Nick, "logs"), nickCond(opts.Nick))
	matched, err := e.bucketCounts(ctx, matchedSQL, opts.Coarse, queryArgs(sqlPattern(pattern, opts.IgnoreCase), opts.Nick)...)
	if err != nil {
		return nil, err
	}

	totalsSQL := fmt.Sprintf(
		`SELECT totals_fine.year, totals_fine.month, %s, SUM(totals_fine.count)
		 FROM totals_fine %s
		 WHERE 1=1 %s
		 GROUP BY 1, 2, 3`,
		dayColumn("totals_fine", opts.Coarse), nickJoin(opts.Nick, "totals_fine"), nickCond(opts.Nick))
	var totalsArgs []any
	if opts.Nick != "" {
		totalsArgs = append(totalsArgs, opts.Nick)
	}
	totals, err := e.bucketCounts(ctx, totalsSQL, opts.Coarse, totalsArgs...)
	if err != nil {
		return nil, err
	}

	keys := bucketKeys(first, last, opts.Coarse)
	return shapeSeries(keys, matched, totals, totalLines, opts), nil
}

// dayColumn returns the day part of the bucket GROUP BY. Coarse buckets
// collapse to a constant so rows group by year and month alone.
func dayColumn(table string, coarse bool) string {
	if coarse {
		return "1"
	}
	return table + ".day"
}

// nickJoin returns the alias-table join clause for a canonical nick filter.
func nickJoin(nick, table string) string {
	if nick == "" {
		return ""
	}
	return fmt.Sprintf(`JOIN valid_nicks ON valid_nicks.alias = LOWER(%s.nick)`, table)
}

func nickCond(nick string) string {
	if nick == "" {
		return ""
	}
	return `AND valid_nicks.nick = ?`
}

func queryArgs(pattern, nick string) []any {
	args := []any{pattern}
	if nick != "" {
		args = append(args, nick)
	}
	return args
}

// bucketCounts runs a (year, month, day, count) aggregation and keys the
// counts by chart bucket.
func (e *SQLite) bucketCounts(ctx context.Context, query string, coarse bool, args ...any) (map[int64]float64, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bucket counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]float64)
	for rows.Next() {
		var day models.Day
		var count float64
		if err := rows.Scan(&day.Year, &day.Month, &day.Day, &count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		if coarse {
			day.Day = 1
		}
		counts[day.Unix()] += count
	}
	return counts, rows.Err()
}

func (e *SQLite) CountOccurrences(ctx context.Context, pattern string, opts CountOptions) (int, error) {
	if e.compile(pattern, opts.IgnoreCase) == nil {
		return 0, nil
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM logs %s WHERE regexp(?, logs.message) %s`,
		nickJoin(opts.Nick, "logs"), nickCond(opts.Nick))

	var total int
	err := e.db.QueryRowContext(ctx, query, queryArgs(sqlPattern(pattern, opts.IgnoreCase), opts.Nick)...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count occurrences: %w", err)
	}
	return total, nil
}

func (e *SQLite) ValidDays(ctx context.Context) ([]models.Day, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT DISTINCT year, month, day FROM logs ORDER BY 1, 2, 3`)
	if err != nil {
		return nil, fmt.Errorf("valid days: %w", err)
	}
	defer rows.Close()

	var days []models.Day
	for rows.Next() {
		var day models.Day
		if err := rows.Scan(&day.Year, &day.Month, &day.Day); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (e *SQLite) LogsByDay(ctx context.Context, day models.Day) (DayLogs, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT timestamp, nick, message FROM logs
		 WHERE year = ? AND month = ? AND day = ?
		 ORDER BY timestamp, rowid`,
		day.Year, day.Month, day.Day)
	if err != nil {
		return DayLogs{}, fmt.Errorf("logs by day: %w", err)
	}
	defer rows.Close()

	out := DayLogs{Lines: []models.Message{}}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.Timestamp, &msg.Nick, &msg.Message); err != nil {
			return DayLogs{}, fmt.Errorf("scan line: %w", err)
		}
		out.Lines = append(out.Lines, msg)
	}
	if err := rows.Err(); err != nil {
		return DayLogs{}, err
	}

	valid, err := e.ValidDays(ctx)
	if err != nil {
		return DayLogs{}, err
	}
	out.Prev, out.Next = neighbours(valid, day)
	return out, nil
}

func (e *SQLite) SearchDayLogs(ctx context.Context, pattern string, ignoreCase bool, limit, offset int) ([]models.SearchHit, int, error) {
	re := e.compile(pattern, ignoreCase)
	if re == nil {
		return nil, 0, nil
	}
	full := sqlPattern(pattern, ignoreCase)

	var total int
	if err := e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logs WHERE regexp(?, message)`, full).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("search total: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	// day_index is the line's position within its whole day, computed
	// before the match filter, so hits link back to the right anchor in the
	// day view.
	rows, err := e.db.QueryContext(ctx,
		`SELECT year, month, day, day_index, timestamp, nick, message FROM (
			SELECT year, month, day,
				ROW_NUMBER() OVER (
					PARTITION BY year, month, day
					ORDER BY timestamp ASC, rowid ASC
				) - 1 AS day_index,
				timestamp, nick, message
			FROM logs
		)
		WHERE regexp(?, message)
		ORDER BY year DESC, month DESC, day DESC, day_index ASC
		LIMIT ? OFFSET ?`,
		full, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search day logs: %w", err)
	}
	defer rows.Close()

	var hits []models.SearchHit
	for rows.Next() {
		var hit models.SearchHit
		if err := rows.Scan(&hit.Day.Year, &hit.Day.Month, &hit.Day.Day,
			&hit.Index, &hit.Line.Timestamp, &hit.Line.Nick, &hit.Line.Message); err != nil {
			return nil, 0, fmt.Errorf("scan hit: %w", err)
		}
		if span := re.FindStringIndex(hit.Line.Message); span != nil {
			hit.Start, hit.End = span[0], span[1]
		}
		hits = append(hits, hit)
	}
	return hits, total, rows.Err()
}

func (e *SQLite) SearchHistogram(ctx context.Context, pattern string, ignoreCase bool) ([]models.Series, error) {
	empty := []models.Series{{Key: "", Values: []models.Point{}}}
	if e.compile(pattern, ignoreCase) == nil {
		return empty, nil
	}

	first, last, err := e.bounds(ctx)
	if err != nil {
		return nil, err
	}
	if first.IsZero() {
		return empty, nil
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT year, month, COUNT(*) FROM logs WHERE regexp(?, message) GROUP BY 1, 2`,
		sqlPattern(pattern, ignoreCase))
	if err != nil {
		return nil, fmt.Errorf("search histogram: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]float64)
	for rows.Next() {
		var year, month int
		var count float64
		if err := rows.Scan(&year, &month, &count); err != nil {
			return nil, fmt.Errorf("scan histogram: %w", err)
		}
		counts[models.Day{Year: year, Month: month, Day: 1}.Unix()] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := monthKeys(first, last)
	values := make([]models.Point, 0, len(keys))
	for _, key := range keys {
		values = append(values, models.Point{X: key, Y: counts[key]})
	}
	return []models.Series{{Key: "", Values: values}}, nil
}

func (e *SQLite) Trending(ctx context.Context, opts TrendingOptions) ([]models.TrendingTerm, error) {
	var newest sql.NullInt64
	if err := e.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM logs`).Scan(&newest); err != nil {
		return nil, fmt.Errorf("newest timestamp: %w", err)
	}
	if !newest.Valid {
		return nil, nil
	}
	cutoff := newest.Int64 - int64(opts.LookbackDays)*24*60*60

	rows, err := e.db.QueryContext(ctx,
		`WITH
			recent AS (
				SELECT word, SUM(count) AS freq
				FROM words
				WHERE timestamp >= ?
				GROUP BY 1
			),
			all_words AS (
				SELECT word, SUM(count) AS freq
				FROM words
				GROUP BY 1
			),
			totals AS (
				SELECT
					(SELECT CAST(SUM(freq) AS REAL) FROM recent) AS recent_total,
					(SELECT CAST(SUM(freq) AS REAL) FROM all_words) AS all_total
			)
		SELECT
			recent.word,
			((recent.freq / totals.recent_total) - (all_words.freq / totals.all_total))
				/ (all_words.freq / totals.all_total) AS score
		FROM recent
		JOIN all_words ON all_words.word = recent.word
		CROSS JOIN totals
		WHERE recent.freq >= ?
		ORDER BY 2 DESC, 1 ASC
		LIMIT ?`,
		cutoff, opts.MinFreq, trendingLimit(opts.Top))
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	defer rows.Close()

	var terms []models.TrendingTerm
	for rows.Next() {
		var term models.TrendingTerm
		if err := rows.Scan(&term.Word, &term.Score); err != nil {
			return nil, fmt.Errorf("scan trending: %w", err)
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

func trendingLimit(top int) int {
	if top <= 0 {
		return -1
	}
	return top
}

func (e *SQLite) Append(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := e.load(msgs); err != nil {
		return err
	}
	return e.buildDerived()
}

func (e *SQLite) Close() error {
	return e.db.Close()
}
