package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		s, err := New(1000, 200)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("overlap equal to size rejected", func(t *testing.T) {
		_, err := New(100, 100)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("overlap above size rejected", func(t *testing.T) {
		_, err := New(100, 150)
		require.Error(t, err)
	})

	t.Run("zero size rejected", func(t *testing.T) {
		_, err := New(0, 0)
		require.Error(t, err)
	})

	t.Run("negative overlap rejected", func(t *testing.T) {
		_, err := New(100, -1)
		require.Error(t, err)
	})
}

func TestSplitter_Split_Empty(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
}

func TestSplitter_Split_SmallText(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	text := "A short paragraph that fits in one chunk."
	chunks := s.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[0].End)
}

func TestSplitter_Split_ParagraphBoundaries(t *testing.T) {
	s, err := New(50, 0)
	require.NoError(t, err)

	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := s.Split(text)

	require.True(t, len(chunks) > 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 50)
		// Offsets must index the exact chunk text.
		assert.Equal(t, text[c.Start:c.End], c.Text)
	}
	// Breaks should land on paragraph boundaries, not mid-word.
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
}

func TestSplitter_Split_BudgetRespected(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	text := strings.Repeat("some words in a sentence ", 100)
	chunks := s.Split(text)

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 100, "chunk %d over budget", i)
	}
}

func TestSplitter_Split_OversizedAtomKept(t *testing.T) {
	// A single token longer than the budget with no separators inside
	// must come through whole rather than looping.
	s, err := New(10, 2, WithSeparators([]string{"\n\n", "\n", " "}))
	require.NoError(t, err)

	token := strings.Repeat("x", 25)
	chunks := s.Split(token)

	require.Len(t, chunks, 1)
	assert.Equal(t, token, chunks[0].Text)
}

func TestSplitter_Split_OverlapFromPreviousChunk(t *testing.T) {
	// 2500 characters with size 1000 / overlap 200 must produce three
	// chunks, each at most 1000 characters, each later chunk starting
	// with the tail of the previous one's source region.
	s, err := New(1000, 200)
	require.NoError(t, err)

	text := strings.Repeat("x", 2500)
	chunks := s.Split(text)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 1000)
	}

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		overlap := prev.End - cur.Start
		assert.Equal(t, 200, overlap, "chunk %d should share 200 chars with its predecessor", i)
	}
	assert.Equal(t, 2500, chunks[len(chunks)-1].End)
}

func TestSplitter_Split_Reconstruction(t *testing.T) {
	s, err := New(80, 16)
	require.NoError(t, err)

	text := "Alpha beta gamma delta.\nEpsilon zeta eta theta.\n\n" +
		strings.Repeat("iota kappa lambda mu nu xi omicron pi. ", 12)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)

	// Dropping each chunk's overlap with its predecessor and
	// concatenating the rest reconstructs the source exactly.
	var b strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		require.LessOrEqual(t, c.Start, prevEnd, "chunks must be adjacent or overlapping")
		b.WriteString(c.Text[prevEnd-c.Start:])
		prevEnd = c.End
	}
	assert.Equal(t, text, b.String())
}

func TestSplitter_Split_Deterministic(t *testing.T) {
	s, err := New(64, 8)
	require.NoError(t, err)

	text := strings.Repeat("determinism matters for caching. ", 40)
	first := s.Split(text)
	second := s.Split(text)

	assert.Equal(t, first, second)
}

func TestSplitter_Split_CustomLengthFunc(t *testing.T) {
	// Budget measured in words instead of characters.
	words := func(text string) int { return len(strings.Fields(text)) }

	s, err := New(5, 1, WithLengthFunc(words))
	require.NoError(t, err)

	text := "one two three four five six seven eight nine ten"
	chunks := s.Split(text)

	require.True(t, len(chunks) >= 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, words(c.Text), 5)
	}
}

func TestSplitter_Split_UTF8Offsets(t *testing.T) {
	s, err := New(4, 1, WithSeparators([]string{""}))
	require.NoError(t, err)

	text := "héllö wörld"
	chunks := s.Split(text)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, text[c.Start:c.End], c.Text, "offsets must not split multi-byte runes")
	}
}
