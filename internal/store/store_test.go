package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/store"
	"github.com/stretchr/testify/require"
)

func TestLoadArchiveSortsByTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	raw := `[
	  {"timestamp": "200", "nick": "b", "message": "second"},
	  {"timestamp": "100", "nick": "a", "message": "first"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	msgs, err := store.LoadArchive(path)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Message)
	require.Equal(t, "second", msgs[1].Message)
}

func TestSaveAndLoadArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "log.json")
	msgs := []models.Message{
		{Timestamp: 100, Nick: "cosmo", Message: "hello"},
		{Timestamp: 200, Nick: "wyll", Message: "hi"},
	}

	require.NoError(t, store.SaveArchive(path, msgs))

	back, err := store.LoadArchive(path)
	require.NoError(t, err)
	require.Equal(t, msgs, back)
}

func TestLoadArchiveMissingFile(t *testing.T) {
	_, err := store.LoadArchive(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestSpoolAppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool", "incoming.jsonl")

	spool, err := store.OpenSpool(path)
	require.NoError(t, err)

	require.NoError(t, spool.Append(models.Message{Timestamp: 10, Nick: "a", Message: "one"}))
	require.NoError(t, spool.Append(models.Message{Timestamp: 20, Nick: "b", Message: "two"}))
	require.NoError(t, spool.Close())

	// Reopening appends rather than truncating.
	spool, err = store.OpenSpool(path)
	require.NoError(t, err)
	require.NoError(t, spool.Append(models.Message{Timestamp: 30, Nick: "c", Message: "three"}))
	require.NoError(t, spool.Close())

	msgs, err := store.LoadSpool(path)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "three", msgs[2].Message)
}

func TestLoadSpoolRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"timestamp\":\"1\",\"nick\":\"a\",\"message\":\"x\"}\nnot json\n"), 0o644))

	_, err := store.LoadSpool(path)
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	a := []models.Message{
		{Timestamp: 100, Nick: "a", Message: "1"},
		{Timestamp: 300, Nick: "a", Message: "3"},
	}
	b := []models.Message{
		{Timestamp: 200, Nick: "b", Message: "2"},
	}

	merged := store.Merge(a, b)
	require.Len(t, merged, 3)
	require.Equal(t, "1", merged[0].Message)
	require.Equal(t, "2", merged[1].Message)
	require.Equal(t, "3", merged[2].Message)
}

func TestSortMessagesIsStable(t *testing.T) {
	msgs := []models.Message{
		{Timestamp: 100, Nick: "a", Message: "first-in"},
		{Timestamp: 100, Nick: "a", Message: "second-in"},
	}
	store.SortMessages(msgs)
	require.Equal(t, "first-in", msgs[0].Message)
	require.Equal(t, "second-in", msgs[1].Message)
}
