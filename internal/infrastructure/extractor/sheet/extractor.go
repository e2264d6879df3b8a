package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// Extractor flattens XLSX question banks into tab-separated text, one
// row per line, sheets separated by a blank line.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	wb, err := excelize.OpenFile(file.Path)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", file.Name, err)
	}
	defer wb.Close()

	var builder strings.Builder
	for _, sheetName := range wb.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := wb.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("read sheet %s of %s: %w", sheetName, file.Name, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			builder.WriteString(line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("no extractable rows in " + file.Name)
	}
	return text, nil
}
