package text

import (
	"errors"
	"fmt"
)

var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// Span is the half-open byte range [Start, End) of a chunk within the corpus.
type Span struct {
	Start int
	End   int
}

// Spans computes chunk boundaries for a corpus of length n. Windows of size
// bytes advance by size-overlap and stop once a window reaches the end.
func Spans(n, size, overlap int) ([]Span, error) {
	if err := ValidateChunkConfig(size, overlap); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	step := size - overlap
	spans := make([]Span, 0, ChunkCount(n, size, overlap))
	for start := 0; ; start += step {
		end := min(start+size, n)
		spans = append(spans, Span{Start: start, End: end})
		if end == n {
			break
		}
	}
	return spans, nil
}

// Chunk splits corpus into overlapping windows. Offsets are bytes.
func Chunk(corpus string, size, overlap int) ([]string, error) {
	spans, err := Spans(len(corpus), size, overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, len(spans))
	for i, sp := range spans {
		chunks[i] = corpus[sp.Start:sp.End]
	}
	return chunks, nil
}

func ValidateChunkConfig(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunkConfig, size)
	case overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunkConfig, overlap)
	case overlap >= size:
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidChunkConfig, overlap, size)
	}
	return nil
}

// ChunkCount is the number of chunks Chunk produces for a corpus of length n.
// The config must already be valid.
func ChunkCount(n, size, overlap int) int {
	switch {
	case n == 0:
		return 0
	case n <= size:
		return 1
	}
	step := size - overlap
	return (n - overlap + step - 1) / step
}
