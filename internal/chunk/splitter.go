package chunk

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ivlasov/claimfold/internal/model"
)

// defaultSeparators are tried in order, coarsest first, so chunks
// break at paragraph and sentence boundaries when possible
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter divides text into overlapping chunks of bounded size. Splits
// happen at the coarsest separator that keeps pieces under the size
// limit, recursing to finer separators for oversized pieces.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter with the given chunk size and overlap
// in characters
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{size: size, overlap: overlap, separators: defaultSeparators}
}

// Split divides text into chunks no larger than the configured size,
// except where a single unbreakable piece exceeds it
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, s.separators)
}

// ChunkSource splits a source's cleaned text and wraps the pieces as
// chunks with fresh ids
func (s *Splitter) ChunkSource(src *model.Source) []model.Chunk {
	pieces := s.Split(src.CleanedText)
	chunks := make([]model.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, model.Chunk{
			SourceID: src.Meta.SourceID,
			ChunkID:  uuid.NewString(),
			Content:  piece,
			Index:    i,
		})
	}
	return chunks
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	// Pick the first separator present in the text; the empty separator
	// always matches and splits into single characters
	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var fitting []string
	var out []string
	for _, piece := range splitKeeping(text, sep) {
		if len(piece) <= s.size {
			fitting = append(fitting, piece)
			continue
		}
		// Flush accumulated pieces before recursing into the big one
		out = append(out, s.merge(fitting, sep)...)
		fitting = nil
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.splitRecursive(piece, rest)...)
		}
	}
	out = append(out, s.merge(fitting, sep)...)
	return out
}

// splitKeeping splits text by sep, re-attaching the separator to the
// preceding piece so no characters are lost
func splitKeeping(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// merge greedily packs pieces into chunks up to the size limit,
// carrying the trailing overlap window into the next chunk
func (s *Splitter) merge(pieces []string, _ string) []string {
	var chunks []string
	var window []string
	windowLen := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if windowLen+len(piece) > s.size && len(window) > 0 {
			flush()
			// Keep the tail of the window as overlap
			for windowLen > s.overlap || (windowLen+len(piece) > s.size && windowLen > 0) {
				windowLen -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		windowLen += len(piece)
	}
	flush()
	return chunks
}
