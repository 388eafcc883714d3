package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkTextShortPassthrough(t *testing.T) {
	got := ChunkText("short text", DefaultChunkerConfig())
	if len(got) != 1 {
		t.Fatalf("chunks = %d, want 1", len(got))
	}
	if got[0].Text != "short text" || got[0].Index != 0 {
		t.Errorf("chunk = %+v", got[0])
	}
}

func TestChunkTextSplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("word ", 30)
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

	got := ChunkText(text, ChunkerConfig{ChunkSize: 200, Overlap: 0})
	if len(got) < 2 {
		t.Fatalf("chunks = %d, want multiple", len(got))
	}
	for i, c := range got {
		if utf8.RuneCountInString(c.Text) > 200+len("word ") {
			t.Errorf("chunk %d length = %d, exceeds target", i, utf8.RuneCountInString(c.Text))
		}
		if c.Index != i {
			t.Errorf("chunk %d index = %d", i, c.Index)
		}
	}
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 40)

	got := ChunkText(text, ChunkerConfig{ChunkSize: 150, Overlap: 30})
	if len(got) < 2 {
		t.Fatalf("chunks = %d, want multiple", len(got))
	}

	tail := got[0].Text[len(got[0].Text)-10:]
	if !strings.Contains(got[1].Text, tail) {
		t.Errorf("chunk 1 missing overlap tail %q from chunk 0", tail)
	}
}

func TestChunkTextNoSeparators(t *testing.T) {
	text := strings.Repeat("x", 1000)

	got := ChunkText(text, ChunkerConfig{ChunkSize: 300, Overlap: 0})
	if len(got) != 4 {
		t.Fatalf("chunks = %d, want 4 rune-level splits", len(got))
	}
}
