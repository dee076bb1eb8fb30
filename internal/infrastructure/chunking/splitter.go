// Package chunking splits extracted page text into indexable units.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Splitter groups paragraphs into chunks bounded by word counts. Chunks
// shorter than MinWords are dropped, duplicates are removed by content
// hash, and a page that yields no chunk at all falls back to a single
// truncated chunk when it carries enough text to be worth indexing.
type Splitter struct {
	MinWords int
	MaxWords int
}

func NewSplitter(minWords, maxWords int) *Splitter {
	if minWords <= 0 {
		minWords = 80
	}
	if maxWords <= minWords {
		maxWords = 600
	}
	return &Splitter{MinWords: minWords, MaxWords: maxWords}
}

func (s *Splitter) Split(text string) []string {
	paragraphs := make([]string, 0, 16)
	for _, p := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	chunks := make([]string, 0, len(paragraphs))
	current := make([]string, 0, 8)
	count := 0
	for _, p := range paragraphs {
		words := len(strings.Fields(p))
		if count+words <= s.MaxWords {
			current = append(current, p)
			count += words
			continue
		}
		if count >= s.MinWords {
			chunks = append(chunks, strings.Join(current, "\n\n"))
		}
		current = []string{p}
		count = words
	}
	if len(current) > 0 && count >= s.MinWords {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	seen := make(map[string]struct{}, len(chunks))
	unique := chunks[:0]
	for _, c := range chunks {
		h := contentHash(c)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, c)
	}
	if len(unique) > 0 {
		return unique
	}

	// Not enough paragraph structure; index one truncated chunk if the
	// page still has a meaningful amount of text.
	words := strings.Fields(text)
	threshold := s.MinWords / 2
	if threshold < 40 {
		threshold = 40
	}
	if len(words) >= threshold {
		if len(words) > s.MaxWords {
			words = words[:s.MaxWords]
		}
		return []string{strings.Join(words, " ")}
	}
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
