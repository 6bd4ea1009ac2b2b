package graph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/interfaces"
)

// FileCursorStore keeps the delta link in a plain text file so a restart
// resumes from the last completed sweep.
type FileCursorStore struct {
	path string
}

func NewFileCursorStore(path string) interfaces.CursorStore {
	return &FileCursorStore{path: path}
}

func (s *FileCursorStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to read cursor file")
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes to a sibling temp file first and renames it into place, so
// a crash mid-write never truncates the stored cursor.
func (s *FileCursorStore) Save(cursor string) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create cursor directory")
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(cursor), 0o644); err != nil {
		return errors.Wrap(err, "failed to write cursor temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace cursor file")
	}
	return nil
}

func (s *FileCursorStore) Reset() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove cursor file")
	}
	return nil
}
