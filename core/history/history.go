// Package history persists the lines entered at the prompt between sessions.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultPath is where history lives unless configured otherwise.
const DefaultPath = "~/.cai_history"

// Store is a bounded, ordered log of entered lines. It is loaded once at
// startup, appended to in memory and written back in full by Save.
type Store struct {
	fs      afero.Fs
	path    string
	limit   int
	entries []string
}

// NewStore creates a store backed by path. A limit of zero or less keeps
// every entry.
func NewStore(fsys afero.Fs, path string, limit int) *Store {
	return &Store{
		fs:    fsys,
		path:  path,
		limit: limit,
	}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory entries with the persisted ones in file order.
// A missing file results in an empty history.
func (s *Store) Load() ([]string, error) {
	fd, err := s.fs.Open(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.entries = nil
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer fd.Close()

	var entries []string
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	s.entries = nil
	for _, line := range entries {
		s.Record(line)
	}
	return s.Entries(), nil
}

// Record appends line to the history, dropping the oldest entries if the
// store is over its limit. Blank lines are ignored.
func (s *Store) Record(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	s.entries = append(s.entries, line)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = append([]string(nil), s.entries[len(s.entries)-s.limit:]...)
	}
}

// Entries returns a copy of the history in entry order.
func (s *Store) Entries() []string {
	return append([]string(nil), s.entries...)
}

// Save overwrites the persisted history with the in-memory entries, one per
// line.
func (s *Store) Save() error {
	fd, err := s.fs.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}

	w := bufio.NewWriter(fd)
	for _, line := range s.entries {
		// Embedded newlines would split an entry in two on the next load.
		line = strings.ReplaceAll(line, "\n", " ")
		if _, err := fmt.Fprintln(w, line); err != nil {
			fd.Close()
			return fmt.Errorf("saving history: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		fd.Close()
		return fmt.Errorf("saving history: %w", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// ExpandPath replaces a leading "~" in path with home.
func ExpandPath(path, home string) string {
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	default:
		return path
	}
}
