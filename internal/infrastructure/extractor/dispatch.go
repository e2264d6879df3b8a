// Package extractor routes staged files to the format-specific
// extraction backends by file extension.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/core/ports"
)

type Dispatcher struct {
	byExt map[string]ports.TextExtractor
}

// NewDispatcher maps extensions to backends. Keys must include the
// leading dot and be lower case.
func NewDispatcher(byExt map[string]ports.TextExtractor) *Dispatcher {
	return &Dispatcher{byExt: byExt}
}

func (d *Dispatcher) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Name))
	backend, ok := d.byExt[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file format %q: %w", ext, errors.New(file.Name))
	}
	return backend.Extract(ctx, file)
}
