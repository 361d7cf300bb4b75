// Package parser extracts page text from source documents and splits it
// into overlapping windows for embedding.
package parser

import (
	"strings"
)

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// ChunkSize is the target window size in characters.
	ChunkSize int
	// Overlap is the character overlap carried from the previous window.
	Overlap int
}

// DefaultChunkConfig returns the splitter defaults used by training.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 500,
		Overlap:   50,
	}
}

// Page holds the extracted text of one document page.
type Page struct {
	Number int
	Text   string
}

// PageChunk is one window of page text, addressable as (page, index).
type PageChunk struct {
	Page  int
	Index int
	Text  string
}

// separators, in preference order: paragraph, line, sentence, word.
// The empty separator means a hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// SplitText splits text into overlapping windows of about cfg.ChunkSize
// characters, preferring paragraph and sentence boundaries over hard cuts.
// Pure and deterministic: identical input and config yield identical output.
func SplitText(text string, cfg ChunkConfig) []string {
	pieces := recursiveSplit(strings.TrimSpace(text), cfg.ChunkSize, 0)
	merged := mergePieces(pieces, cfg.ChunkSize)
	return applyOverlap(merged, cfg.Overlap)
}

// ChunkPages splits every page and tags windows with (page, index).
// Chunk indexes restart per page to keep chunk ids stable across pages.
func ChunkPages(pages []Page, cfg ChunkConfig) []PageChunk {
	var chunks []PageChunk
	for _, page := range pages {
		for i, text := range SplitText(page.Text, cfg) {
			chunks = append(chunks, PageChunk{
				Page:  page.Number,
				Index: i,
				Text:  text,
			})
		}
	}
	return chunks
}

// recursiveSplit breaks text into pieces no longer than limit, descending
// through the separator hierarchy only when the current level's pieces are
// still too long.
func recursiveSplit(text string, limit, depth int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	sep := separators[depth]
	if sep == "" {
		// Hard cut; no boundary left to respect.
		var out []string
		for len(text) > limit {
			out = append(out, text[:limit])
			text = text[limit:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	if !strings.Contains(text, sep) {
		return recursiveSplit(text, limit, depth+1)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		out = append(out, recursiveSplit(part, limit, depth+1)...)
	}
	return out
}

// mergePieces greedily packs adjacent pieces into windows up to limit.
func mergePieces(pieces []string, limit int) []string {
	var chunks []string
	var current strings.Builder

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > limit {
			chunk := strings.TrimSpace(current.String())
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			current.Reset()
		}
		current.WriteString(piece)
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// applyOverlap prepends the tail of each preceding window, cut at a word
// boundary, so sentence fragments keep their lead-in context.
func applyOverlap(chunks []string, overlap int) []string {
	if overlap <= 0 || len(chunks) <= 1 {
		return chunks
	}

	result := make([]string, len(chunks))
	copy(result, chunks)

	for i := 1; i < len(result); i++ {
		prev := chunks[i-1]
		if len(prev) <= overlap {
			continue
		}
		tail := prev[len(prev)-overlap:]
		// Drop the possibly partial leading word.
		if spaceIdx := strings.Index(tail, " "); spaceIdx >= 0 {
			tail = tail[spaceIdx+1:]
		}
		if tail != "" {
			result[i] = tail + " " + result[i]
		}
	}

	return result
}
