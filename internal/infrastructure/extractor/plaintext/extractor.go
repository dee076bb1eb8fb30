// Package plaintext extracts text from plain text and markdown
// attachments.
package plaintext

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("attachment is not valid utf-8 text")
	}
	return strings.TrimSpace(string(raw)), nil
}
