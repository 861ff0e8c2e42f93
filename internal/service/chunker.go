package service

import (
	"strings"
	"unicode"

	"github.com/archiva-labs/doclib/internal/domain"
)

// ChunkConfig controls how extracted document text is split for embedding.
type ChunkConfig struct {
	ChunkSize int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 1000,
		Overlap:   200,
		MaxChunks: 500,
	}
}

// Segment is one chunk of text with its rune offsets into the source text.
type Segment struct {
	Text  string
	Start int
	End   int
}

// ChunkText splits text into overlapping segments of at most chunkSize
// runes. Splits prefer paragraph breaks, then sentence ends, then
// whitespace; a run with no boundary is cut hard at chunkSize, which gives
// start offsets of i*(chunkSize-overlap). Each segment after the first
// repeats the trailing overlap runes of its predecessor. The output is
// deterministic for identical input and parameters.
func ChunkText(text string, chunkSize, overlap int) ([]Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}
	if chunkSize <= 0 {
		return nil, domain.ErrInvalidChunkParams
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.ErrInvalidChunkParams
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []Segment{{Text: text, Start: 0, End: len(runes)}}, nil
	}

	segments := make([]Segment, 0, len(runes)/chunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = splitPoint(runes, start, end)
		}

		segments = append(segments, Segment{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return segments, nil
}

// Chunk applies a ChunkConfig to text, capping the number of segments.
func Chunk(text string, cfg ChunkConfig) ([]Segment, error) {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	segments, err := ChunkText(text, cfg.ChunkSize, cfg.Overlap)
	if err != nil {
		return nil, err
	}
	if cfg.MaxChunks > 0 && len(segments) > cfg.MaxChunks {
		segments = segments[:cfg.MaxChunks]
	}
	return segments, nil
}

// splitPoint finds the best cut at or before end, never earlier than a
// third of the window so pathological inputs cannot produce tiny chunks.
func splitPoint(runes []rune, start, end int) int {
	minCut := start + (end-start)/3
	if minCut <= start {
		minCut = start + 1
	}

	// Paragraph boundary: cut just after a blank line.
	for i := end; i > minCut; i-- {
		if runes[i-1] == '\n' && i-2 >= start && runes[i-2] == '\n' {
			return i
		}
	}

	// Sentence boundary: terminator followed by whitespace.
	for i := end; i > minCut; i-- {
		if isSentenceEnd(runes[i-1]) && i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}

	// Any whitespace.
	for i := end; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}
