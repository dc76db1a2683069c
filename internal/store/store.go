package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cfumo/irc-stats/internal/models"
)

// LoadArchive reads a monolithic JSON array archive and returns its
// messages sorted chronologically.
func LoadArchive(path string) ([]models.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var msgs []models.Message
	dec := json.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", path, err)
	}

	SortMessages(msgs)
	return msgs, nil
}

// SaveArchive writes messages as a JSON array, creating parent directories
// as needed. The write goes through a temp file and rename so a crash never
// leaves a truncated archive.
func SaveArchive(path string, msgs []models.Message) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		tmp.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}

// Spool appends messages to a JSONL file, one record per line. The ingest
// worker writes through it; Merge folds spools back into the archive.
type Spool struct {
	f *os.File
}

// OpenSpool opens (or creates) a spool file for appending.
func OpenSpool(path string) (*Spool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	return &Spool{f: f}, nil
}

// Append writes one message and syncs it to disk. The worker only commits
// a Kafka offset after Append returns.
func (s *Spool) Append(msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode spool record: %w", err)
	}
	if _, err := s.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write spool record: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync spool: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *Spool) Close() error {
	return s.f.Close()
}

// LoadSpool reads all records from a JSONL spool file. Blank lines are
// skipped; a malformed line is an error rather than silently dropped data.
func LoadSpool(path string) ([]models.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	defer f.Close()

	var msgs []models.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("spool %s line %d: %w", path, lineno, err)
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read spool: %w", err)
	}

	return msgs, nil
}

// Merge combines several message sets into one chronologically sorted set.
func Merge(sets ...[]models.Message) []models.Message {
	total := 0
	for _, set := range sets {
		total += len(set)
	}

	merged := make([]models.Message, 0, total)
	for _, set := range sets {
		merged = append(merged, set...)
	}

	SortMessages(merged)
	return merged
}

// SortMessages sorts in place by timestamp, keeping the relative order of
// lines that share a second.
func SortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}
