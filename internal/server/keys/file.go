package keys

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the signing key from a PEM file on local disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("error reading key file: %w", err)
	}
	return raw, nil
}
