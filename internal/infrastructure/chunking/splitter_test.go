package chunking

import (
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "слово"
	}
	return strings.Join(parts, " ")
}

func TestSplitGroupsParagraphsUpToMaxWords(t *testing.T) {
	s := NewSplitter(80, 600)
	text := "первый " + words(399) + "\n\n" + "второй " + words(399) + "\n\n" + "третий " + words(299)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len(strings.Fields(c)); n > 600 {
			t.Errorf("chunk %d exceeds max words: %d", i, n)
		}
	}
}

func TestSplitDropsShortTailBelowMinWords(t *testing.T) {
	s := NewSplitter(80, 600)
	// Unique filler so dedup does not interfere.
	long := words(599) + " уникальный"
	short := "короткий хвост"

	chunks := s.Split(long + "\n\n" + short)
	if len(chunks) != 1 {
		t.Fatalf("expected short tail dropped, got %d chunks", len(chunks))
	}
	if strings.Contains(chunks[0], "короткий") {
		t.Error("tail paragraph leaked into chunk")
	}
}

func TestSplitDeduplicatesIdenticalChunks(t *testing.T) {
	s := NewSplitter(80, 100)
	paragraph := words(90)
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected identical chunks deduplicated, got %d", len(chunks))
	}
}

func TestSplitFallbackSingleTruncatedChunk(t *testing.T) {
	s := NewSplitter(80, 600)
	// One paragraph of 50 words: under MinWords, so no regular chunk,
	// but above the fallback threshold of 40.
	text := words(50)

	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected fallback chunk, got %d", len(chunks))
	}
	if n := len(strings.Fields(chunks[0])); n != 50 {
		t.Errorf("unexpected fallback size %d", n)
	}
}

func TestSplitOversizedParagraphKeptWhole(t *testing.T) {
	s := NewSplitter(80, 100)
	// A single paragraph over max words is still one chunk; paragraphs
	// are never split mid-way.
	text := words(250)

	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if n := len(strings.Fields(chunks[0])); n != 250 {
		t.Errorf("expected whole paragraph kept, got %d words", n)
	}
}

func TestSplitTinyTextYieldsNothing(t *testing.T) {
	s := NewSplitter(80, 600)
	if chunks := s.Split("слишком мало слов"); chunks != nil {
		t.Errorf("expected no chunks, got %v", chunks)
	}
	if chunks := s.Split(""); chunks != nil {
		t.Errorf("expected no chunks for empty text, got %v", chunks)
	}
}
