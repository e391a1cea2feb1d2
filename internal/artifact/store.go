// Package artifact reads and writes the JSON files stages hand to each other.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"NewsPerspectives/internal/ports"
)

// ErrNotFound reports a missing artifact. Optional upstream stages produce
// it routinely, so callers treat it as a normal condition. Load wraps it
// together with the underlying fs.ErrNotExist.
var ErrNotFound = errors.New("artifact not found")

// CorruptError reports an artifact that exists but cannot be decoded.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("artifact %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Store is a filesystem ArtifactStore.
type Store struct {
	perm fs.FileMode
}

var _ ports.ArtifactStore = (*Store)(nil)

// NewStore returns a store writing files with 0644 permissions.
func NewStore() *Store {
	return &Store{perm: 0o644}
}

// Load decodes the artifact at path into v.
func (s *Store) Load(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("read artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &CorruptError{Path: path, Err: err}
	}
	return nil
}

// Save encodes v as indented JSON, creating parent directories as needed.
// The file is replaced atomically so readers never see a partial artifact.
func (s *Store) Save(path string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", path, err)
	}
	encoded = append(encoded, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir %s: %w", dir, err)
		}
	}
	if err := renameio.WriteFile(path, encoded, s.perm); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}
