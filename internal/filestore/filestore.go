package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported video type")

var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".ogg":  {},
	".wmv":  {},
	".mkv":  {},
}

// Store writes uploaded video payloads to a directory on disk and hands back
// an opaque stored name. Everything beyond "accept the payload, return an
// addressable name" lives outside the synchronization core.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}

	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save validates filename against the extension allow-list and streams r into
// a uniquely named file. It returns the stored file name.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return name, nil
}
