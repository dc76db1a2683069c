package bench

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/nicks"
	"github.com/cfumo/irc-stats/internal/store"
)

// vocabulary feeds the synthetic message generator. The words overlap with
// the patterns in representative queries so benchmark queries actually hit.
var vocabulary = []string{
	"error", "warning", "info", "debug", "request", "response", "user", "login",
	"logout", "payment", "file", "database", "success", "failure", "system",
	"network", "service", "module", "component", "process", "event", "data",
	"critical", "timeout", "exception", "connection", "authentication", "authorization",
	"update", "query", "server", "client", "api", "version", "status", "initiation",
}

// commonWords get a boosted pick probability so frequency-sensitive queries
// see a realistic skew.
var commonWords = []string{"request", "response", "info", "debug", "error", "user"}

// GenerateOptions controls synthetic dataset generation. The same seed and
// options always produce the same dataset.
type GenerateOptions struct {
	Entries   int
	StartDate time.Time
	EndDate   time.Time
	NumNicks  int
	Seed      int64
}

// Generate produces a sorted synthetic chat archive.
func Generate(opts GenerateOptions) ([]models.Message, error) {
	if opts.Entries <= 0 {
		return nil, fmt.Errorf("entries must be positive, got %d", opts.Entries)
	}
	if !opts.StartDate.Before(opts.EndDate) {
		return nil, fmt.Errorf("start date %s is not before end date %s",
			opts.StartDate.Format("2006-01-02"), opts.EndDate.Format("2006-01-02"))
	}
	numNicks := opts.NumNicks
	if numNicks <= 0 {
		numNicks = 10
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	names := GeneratedNicks(numNicks)

	span := opts.EndDate.Unix() - opts.StartDate.Unix()
	msgs := make([]models.Message, 0, opts.Entries)
	for i := 0; i < opts.Entries; i++ {
		msgs = append(msgs, models.Message{
			Timestamp: opts.StartDate.Unix() + rng.Int63n(span),
			Nick:      names[rng.Intn(len(names))],
			Message:   randomMessage(rng),
		})
	}
	store.SortMessages(msgs)
	return msgs, nil
}

// GeneratedNicks returns the nick names Generate assigns: User1..UserN.
func GeneratedNicks(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("User%d", i+1)
	}
	return names
}

// GeneratedNickTable builds an alias table where every generated nick is its
// own canonical name, for engines opened over a generated dataset.
func GeneratedNickTable(n int) (*nicks.Table, error) {
	groups := make(map[string][]string, n)
	for _, name := range GeneratedNicks(n) {
		groups[name] = []string{strings.ToLower(name)}
	}
	return nicks.New(groups)
}

const lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomMessage(rng *rand.Rand) string {
	n := 3 + rng.Intn(8)
	parts := make([]string, 0, n+2)
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.4 {
			parts = append(parts, commonWords[rng.Intn(len(commonWords))])
		} else {
			parts = append(parts, vocabulary[rng.Intn(len(vocabulary))])
		}
	}
	if rng.Float64() < 0.2 {
		parts = append(parts, fmt.Sprintf("%d", 100+rng.Intn(9900)))
	}
	if rng.Float64() < 0.1 {
		k := 3 + rng.Intn(4)
		b := make([]byte, k)
		for i := range b {
			b[i] = lowerAlnum[rng.Intn(len(lowerAlnum))]
		}
		parts = append(parts, string(b))
	}
	rng.Shuffle(len(parts), func(i, j int) {
		parts[i], parts[j] = parts[j], parts[i]
	})
	return strings.Join(parts, " ")
}
