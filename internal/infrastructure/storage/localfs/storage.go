package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// Storage stages uploaded source files on local disk for the duration
// of one analysis job.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Stage(_ context.Context, filename string, data io.Reader) (domain.UploadedFile, error) {
	key := uuid.NewString() + "_" + sanitizeFilename(filename)
	path := filepath.Join(s.basePath, key)

	f, err := os.Create(path)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, data)
	if err != nil {
		_ = os.Remove(path)
		return domain.UploadedFile{}, fmt.Errorf("write staged file: %w", err)
	}

	return domain.UploadedFile{Name: filename, Path: path, Size: size}, nil
}

func (s *Storage) Remove(_ context.Context, file domain.UploadedFile) error {
	if file.Path == "" {
		return nil
	}
	if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
