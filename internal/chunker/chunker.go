// Package chunker splits text into overlapping segments under a size
// budget, recursing through a separator hierarchy so chunks break at
// paragraph and sentence boundaries where possible.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators is the separator priority order: paragraph break,
// line break, word break, then individual characters.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", " ", ""}
}

// LengthFunc measures text against the chunk size budget.
// The default counts characters (runes).
type LengthFunc func(string) int

// Piece is one output chunk with its byte offsets into the source text.
// Offsets always satisfy text[Start:End] == Text.
type Piece struct {
	// Text is the chunk content.
	Text string

	// Start is the byte offset of the chunk start in the source.
	Start int

	// End is the byte offset one past the chunk end.
	End int
}

// Splitter splits text recursively by separators.
// Identical input and configuration always produce identical output.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	length       LengthFunc
}

// Option configures the splitter.
type Option func(*Splitter)

// WithSeparators overrides the separator priority order.
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = separators
		}
	}
}

// WithLengthFunc overrides how text is measured against the size budget.
func WithLengthFunc(fn LengthFunc) Option {
	return func(s *Splitter) {
		if fn != nil {
			s.length = fn
		}
	}
}

// New creates a splitter. The overlap must be smaller than the chunk size;
// that is a configuration error, rejected here rather than at split time.
func New(chunkSize, chunkOverlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidInput, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidInput, chunkOverlap, chunkSize)
	}

	s := &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators(),
		length:       func(text string) int { return len([]rune(text)) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split chunks the text. Empty text produces no chunks. A single token
// that no separator can break is emitted as an oversized chunk rather
// than looping forever.
func (s *Splitter) Split(text string) []Piece {
	if text == "" {
		return nil
	}
	atoms := s.atomize(text, 0, s.separators)
	return s.merge(atoms)
}

// atomize recursively breaks text into pieces that fit the size budget,
// descending the separator hierarchy for pieces that are still too long.
// Separators stay attached to the preceding piece, so pieces are exact
// contiguous slices of the source.
func (s *Splitter) atomize(text string, base int, separators []string) []Piece {
	if s.length(text) <= s.chunkSize || len(separators) == 0 {
		return []Piece{{Text: text, Start: base, End: base + len(text)}}
	}

	sep := separators[0]
	rest := separators[1:]

	parts := splitAfter(text, sep)
	if len(parts) == 1 {
		// Separator not present; try the next one on the whole text.
		return s.atomize(text, base, rest)
	}

	var out []Piece
	for _, part := range parts {
		if s.length(part.Text) <= s.chunkSize {
			out = append(out, Piece{Text: part.Text, Start: base + part.Start, End: base + part.End})
			continue
		}
		out = append(out, s.atomize(part.Text, base+part.Start, rest)...)
	}
	return out
}

// merge greedily packs adjacent pieces into chunks up to the size budget.
// When a chunk closes, the trailing pieces up to the overlap budget are
// retained as the head of the next chunk, so overlap always comes from
// the immediately preceding output chunk.
func (s *Splitter) merge(atoms []Piece) []Piece {
	var chunks []Piece

	var window []Piece
	windowLen := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		var b strings.Builder
		for _, p := range window {
			b.WriteString(p.Text)
		}
		chunks = append(chunks, Piece{
			Text:  b.String(),
			Start: window[0].Start,
			End:   window[len(window)-1].End,
		})
	}

	for _, atom := range atoms {
		atomLen := s.length(atom.Text)

		if windowLen+atomLen > s.chunkSize && len(window) > 0 {
			flush()

			// Keep the tail as overlap, and make room for the new piece.
			for windowLen > s.chunkOverlap || (windowLen+atomLen > s.chunkSize && windowLen > 0) {
				windowLen -= s.length(window[0].Text)
				window = window[1:]
			}
		}

		window = append(window, atom)
		windowLen += atomLen
	}
	flush()

	return chunks
}

// splitAfter splits text on sep, keeping the separator at the end of each
// piece, and records byte offsets. An empty sep splits into single runes.
// Empty pieces (from a trailing separator) are dropped.
func splitAfter(text, sep string) []Piece {
	var parts []Piece

	if sep == "" {
		for i, r := range text {
			parts = append(parts, Piece{Text: string(r), Start: i, End: i + len(string(r))})
		}
		return parts
	}

	offset := 0
	for _, segment := range strings.SplitAfter(text, sep) {
		if segment == "" {
			continue
		}
		parts = append(parts, Piece{Text: segment, Start: offset, End: offset + len(segment)})
		offset += len(segment)
	}
	return parts
}
