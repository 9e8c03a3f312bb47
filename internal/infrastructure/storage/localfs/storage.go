package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const processedDir = "processed"

// Storage keeps uploaded documents on the local filesystem. Processed
// documents move into a processed/ subdirectory so the upload area only
// ever holds work in flight.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(filepath.Join(basePath, processedDir), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Archive moves a stored object under processed/ and returns its new key.
// Archiving an already archived key is a no-op.
func (s *Storage) Archive(_ context.Context, key string) (string, error) {
	if strings.HasPrefix(key, processedDir+"/") {
		return key, nil
	}
	oldPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	newKey := processedDir + "/" + filepath.Base(key)
	newPath, err := s.resolve(newKey)
	if err != nil {
		return "", err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("archive file: %w", err)
	}
	return newKey, nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// resolve joins the key under basePath and rejects keys that escape it.
func (s *Storage) resolve(key string) (string, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	base := filepath.Clean(s.basePath) + string(filepath.Separator)
	if !strings.HasPrefix(path, base) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return path, nil
}
