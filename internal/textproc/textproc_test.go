package textproc_test

import (
	"testing"
	"time"

	"github.com/cfumo/irc-stats/internal/textproc"
	"github.com/stretchr/testify/require"
)

func TestSplitLinks(t *testing.T) {
	segments := textproc.SplitLinks("see https://example.com/a and http://b.co too")
	require.Equal(t, []textproc.Segment{
		{Text: "see "},
		{Link: true, Text: "https://example.com/a"},
		{Text: " and "},
		{Link: true, Text: "http://b.co"},
		{Text: " too"},
	}, segments)
}

func TestSplitLinksNoLinks(t *testing.T) {
	segments := textproc.SplitLinks("just words")
	require.Equal(t, []textproc.Segment{{Text: "just words"}}, segments)
}

func TestCleanWord(t *testing.T) {
	require.Equal(t, "hello", textproc.CleanWord(`"Hello!"`))
	require.Equal(t, "it's", textproc.CleanWord("It's"))
	require.Equal(t, "", textproc.CleanWord("?!"))
}

func TestWordFreqs(t *testing.T) {
	freqs := textproc.WordFreqs([]string{
		"Hello hello world.",
		"hello again",
	}, 0)
	require.Equal(t, 3, freqs["hello"])
	require.Equal(t, 1, freqs["world"])
	require.Equal(t, 1, freqs["again"])
}

func TestWordFreqsMinFreq(t *testing.T) {
	freqs := textproc.WordFreqs([]string{"a a b"}, 2)
	require.Equal(t, map[string]int{"a": 2}, freqs)
}

func TestRecordHashDeterministic(t *testing.T) {
	ts := time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)
	a := textproc.RecordHash("cosmo", "hi", ts)
	b := textproc.RecordHash("cosmo", "hi", ts)
	c := textproc.RecordHash("cosmo", "hi!", ts)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 40)
}
