// Package ingest indexes knowledge-base documents: text is split into
// overlapping chunks, embedded, and upserted into the vector store.
package ingest

import (
	"strings"
	"unicode/utf8"
)

// ChunkerConfig configures the text chunker.
type ChunkerConfig struct {
	ChunkSize int // target chunk size in characters (default 512)
	Overlap   int // overlap between consecutive chunks (default 50)
}

// DefaultChunkerConfig returns sensible defaults for recursive splitting.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{ChunkSize: 512, Overlap: 50}
}

// Chunk is a single piece of a split document.
type Chunk struct {
	Text  string
	Index int
}

// splitSeparators are tried in priority order; "" means rune-level split.
var splitSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ChunkText splits text into overlapping chunks using recursive splitting:
// paragraph breaks first, then lines, sentences, words, and finally runes.
func ChunkText(text string, config ChunkerConfig) []Chunk {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 512
	}
	if config.Overlap < 0 {
		config.Overlap = 0
	}

	if utf8.RuneCountInString(text) <= config.ChunkSize {
		return []Chunk{{Text: text}}
	}

	chunks := recursiveSplit(text, config.ChunkSize, config.Overlap)
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

func recursiveSplit(text string, chunkSize, overlap int) []Chunk {
	var segments []string
	var sep string
	for _, candidate := range splitSeparators {
		if candidate == "" {
			segments = splitByRunes(text, chunkSize)
			break
		}
		if parts := strings.Split(text, candidate); len(parts) > 1 {
			segments = parts
			sep = candidate
			break
		}
	}
	if len(segments) == 0 {
		return []Chunk{{Text: text}}
	}

	var chunks []Chunk
	var current strings.Builder
	for _, seg := range segments {
		candidate := current.String()
		if candidate != "" {
			candidate += sep
		}
		candidate += seg

		if utf8.RuneCountInString(candidate) > chunkSize && current.Len() > 0 {
			chunks = append(chunks, Chunk{Text: current.String()})

			// Carry the tail of the flushed chunk as overlap.
			tail := overlapTail(current.String(), overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(sep)
			}
			current.WriteString(seg)
		} else {
			if current.Len() > 0 {
				current.WriteString(sep)
			}
			current.WriteString(seg)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, Chunk{Text: current.String()})
	}
	return chunks
}

// overlapTail returns the last n runes of s.
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

func splitByRunes(text string, n int) []string {
	runes := []rune(text)
	var segments []string
	for i := 0; i < len(runes); i += n {
		end := i + n
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[i:end]))
	}
	return segments
}
