package router

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MediaStore persists tool produced media under a directory.
type MediaStore struct {
	dir string
}

func NewMediaStore(dir string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", dir, err)
	}
	return &MediaStore{dir: dir}, nil
}

func (m *MediaStore) Dir() string { return m.dir }

// Save writes data under a fresh random name and returns the file name and
// its full path. The extension follows mimeType, or the sniffed content type
// when mimeType is unknown.
func (m *MediaStore) Save(data []byte, mimeType string) (name, path string, err error) {
	name = uuid.NewString() + Extension(data, mimeType)
	path = filepath.Join(m.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("save media %s: %w", name, err)
	}
	return name, path, nil
}

// Extension returns the file extension for mimeType, including the dot.
func Extension(data []byte, mimeType string) string {
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	return mimetype.Detect(data).Extension()
}

// Fetch returns the path of the stored file name, calling load to write it
// first when it does not exist yet. Names are reduced to their base element.
func (m *MediaStore) Fetch(name string, load func() ([]byte, error)) (string, error) {
	path := filepath.Join(m.dir, filepath.Base(name))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	data, err := load()
	if err != nil {
		return "", fmt.Errorf("load media %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save media %s: %w", name, err)
	}
	return path, nil
}
