package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Counts(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
		want    int
	}{
		{"Empty", 0, 1500, 200, 0},
		{"Shorter Than Size", 200, 1500, 200, 1},
		{"Exactly Size", 1500, 1500, 200, 1},
		{"One Past Size", 1501, 1500, 200, 2},
		{"Reference Defaults", 4000, 1500, 200, 3},
		{"No Overlap", 1000, 100, 0, 10},
		{"Small Windows", 25, 10, 5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Chunk(strings.Repeat("a", tt.length), tt.size, tt.overlap)
			require.NoError(t, err)
			assert.Len(t, chunks, tt.want)
			assert.Equal(t, tt.want, ChunkCount(tt.length, tt.size, tt.overlap))
		})
	}
}

func TestChunk_CoverageAndOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 5000; i++ {
		sb.WriteString(string(rune('a' + i%26)))
	}
	corpus := sb.String()

	spans, err := Spans(len(corpus), 1500, 200)
	require.NoError(t, err)
	require.NotEmpty(t, spans)

	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len(corpus), spans[len(spans)-1].End)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, 200, spans[i-1].End-spans[i].Start, "adjacent chunks overlap by exactly O")
		assert.Greater(t, spans[i].End, spans[i].Start, "no empty chunks")
	}

	chunks, err := Chunk(corpus, 1500, 200)
	require.NoError(t, err)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 1500)
		assert.Equal(t, corpus[spans[i].Start:spans[i].End], c)
	}
}

func TestChunk_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"Overlap Equals Size", 100, 100},
		{"Overlap Exceeds Size", 100, 150},
		{"Zero Size", 0, 0},
		{"Negative Overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Chunk(strings.Repeat("x", 500), tt.size, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidChunkConfig)
			assert.Nil(t, chunks)
		})
	}
}

func TestChunk_Deterministic(t *testing.T) {
	corpus := strings.Repeat("Date: 2024-01-01\nTitle: Rent\n", 200)
	a, err := Chunk(corpus, 300, 50)
	require.NoError(t, err)
	b, err := Chunk(corpus, 300, 50)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
