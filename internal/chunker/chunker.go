package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkConfig reports chunking parameters that would make the
// window walk loop forever or run backwards.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Split cuts text into overlapping windows of size runes, stepping by
// size-overlap. Offsets are counted in runes so multi-byte characters are
// never cut in half. The last chunk may be shorter than size.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunkConfig, overlap, size)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
