package pdfdoc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// Extractor pulls plain text out of PDF question papers, page by page.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	f, reader, err := pdf.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", file.Name, err)
	}
	defer f.Close()

	var builder strings.Builder
	total := reader.NumPage()
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		// Large scans take a while; stay cancellable between pages.
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d of %s: %w", pageIndex, file.Name, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	if builder.Len() == 0 {
		return "", errors.New("no extractable text in " + file.Name)
	}
	return builder.String(), nil
}
