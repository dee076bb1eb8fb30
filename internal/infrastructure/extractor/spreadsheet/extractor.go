// Package spreadsheet extracts cell text from xlsx attachments.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract flattens every sheet into tab-separated rows, one sheet after
// another.
func (e *Extractor) Extract(r io.Reader) (string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	for _, sheet := range file.GetSheetList() {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
