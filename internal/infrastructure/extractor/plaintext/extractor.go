package plaintext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// Extractor reads staged text files (.txt, .md) as-is.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid text: %s", file.Name)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", errors.New("file contains no text: " + file.Name)
	}
	return text, nil
}
