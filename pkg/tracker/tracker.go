package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/xhad/askmydocs/internal/types"
)

const DefaultPath = "ingested_files.json"

// Store persists the ordered list of file paths that are already in the index.
// There is no locking: concurrent writers race and the last one wins.
type Store struct {
	path string
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the tracked paths. A missing file is an empty tracker.
func (s *Store) Load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read tracker %s: %w", s.path, err)
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrCorruptTracker, s.path, err)
	}
	if paths == nil {
		// a literal "null" is not a list
		return nil, fmt.Errorf("%w: %s: expected a JSON array", types.ErrCorruptTracker, s.path)
	}
	return paths, nil
}

// Save rewrites the whole tracker file.
func (s *Store) Save(paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	data, err := json.MarshalIndent(paths, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode tracker: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tracker %s: %w", s.path, err)
	}
	return nil
}

// Contains reports whether path is tracked, by exact string match.
func Contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
