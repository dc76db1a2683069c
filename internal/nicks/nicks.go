package nicks

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table maps canonical member names to the IRC nicks they have used over
// the years. Filtering and per-member splits always work on canonical names
// and match any of the aliases.
type Table struct {
	groups    map[string][]string
	canonical map[string]string
	names     []string
}

// Default is the alias table compiled into the binary, used when no YAML
// file is configured.
var defaultGroups = map[string][]string{
	"Cosmo":  {"cosmo", "cfumo"},
	"Graham": {"graham", "jorgon"},
	"Jesse":  {"jesse", "je-c"},
	"Will":   {"will", "wyll", "wyll_"},
	"Zhenya": {"zhenyah", "zhenya", "zdog", "swphantom", "za", "zhenya2"},
}

// Default returns the compiled-in alias table.
func Default() *Table {
	t, err := New(defaultGroups)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads an alias table from a YAML file mapping canonical names to
// alias lists. An empty path returns the default table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nicks file: %w", err)
	}

	var groups map[string][]string
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse nicks file: %w", err)
	}

	return New(groups)
}

// New builds a table from explicit alias groups.
func New(groups map[string][]string) (*Table, error) {
	t := &Table{
		groups:    make(map[string][]string, len(groups)),
		canonical: make(map[string]string),
	}

	for name, aliases := range groups {
		if name == "" {
			return nil, fmt.Errorf("empty canonical name")
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("nick %q has no aliases", name)
		}

		lowered := make([]string, 0, len(aliases))
		for _, alias := range aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if owner, dup := t.canonical[alias]; dup && owner != name {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, owner, name)
			}
			t.canonical[alias] = name
			lowered = append(lowered, alias)
		}
		if len(lowered) == 0 {
			return nil, fmt.Errorf("nick %q has no usable aliases", name)
		}

		t.groups[name] = lowered
		t.names = append(t.names, name)
	}

	sort.Strings(t.names)
	return t, nil
}

// Names returns the canonical names in sorted order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Aliases returns the lowercase aliases for a canonical name, or nil when
// the name is unknown.
func (t *Table) Aliases(name string) []string {
	aliases, ok := t.groups[name]
	if !ok {
		return nil
	}
	out := make([]string, len(aliases))
	copy(out, aliases)
	return out
}

// Known reports whether name is a canonical member name.
func (t *Table) Known(name string) bool {
	_, ok := t.groups[name]
	return ok
}

// Canonical resolves a raw nick to its canonical name. The second return
// is false when the nick belongs to no alias group.
func (t *Table) Canonical(alias string) (string, bool) {
	name, ok := t.canonical[strings.ToLower(strings.TrimSpace(alias))]
	return name, ok
}

// Matches reports whether a raw nick belongs to the canonical name's group.
func (t *Table) Matches(name, rawNick string) bool {
	owner, ok := t.Canonical(rawNick)
	return ok && owner == name
}
