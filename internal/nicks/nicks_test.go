package nicks_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cfumo/irc-stats/internal/nicks"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := nicks.Default()

	require.Equal(t, []string{"Cosmo", "Graham", "Jesse", "Will", "Zhenya"}, table.Names())
	require.Contains(t, table.Aliases("Zhenya"), "swphantom")
	require.True(t, table.Known("Will"))
	require.False(t, table.Known("nobody"))
}

func TestCanonicalIsCaseInsensitive(t *testing.T) {
	table := nicks.Default()

	name, ok := table.Canonical("CFUMO")
	require.True(t, ok)
	require.Equal(t, "Cosmo", name)

	_, ok = table.Canonical("stranger")
	require.False(t, ok)
}

func TestMatches(t *testing.T) {
	table := nicks.Default()
	require.True(t, table.Matches("Will", "wyll_"))
	require.False(t, table.Matches("Will", "jorgon"))
	require.False(t, table.Matches("Unknown", "wyll_"))
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nicks.yml")
	content := "Alice:\n  - alice\n  - ali\nBob:\n  - bob\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := nicks.Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Bob"}, table.Names())
	require.Equal(t, []string{"alice", "ali"}, table.Aliases("Alice"))
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	table, err := nicks.Load("")
	require.NoError(t, err)
	require.True(t, table.Known("Cosmo"))
}

func TestNewRejectsDuplicateAlias(t *testing.T) {
	_, err := nicks.New(map[string][]string{
		"A": {"shared"},
		"B": {"shared"},
	})
	require.Error(t, err)
}

func TestNewRejectsEmptyGroup(t *testing.T) {
	_, err := nicks.New(map[string][]string{"A": {}})
	require.Error(t, err)

	_, err = nicks.New(map[string][]string{"A": {"  "}})
	require.Error(t, err)
}
