// Package batch partitions the serial population into request-sized chunks.
package batch

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned when the requested chunk size is not positive.
var ErrInvalidSize = errors.New("batch size must be positive")

// Partition splits serials into contiguous chunks of at most size elements.
// Order is preserved: concatenating the chunks reproduces the input exactly,
// every chunk except the last holds exactly size elements, and the last holds
// between 1 and size. An empty input yields no chunks. Pure function.
func Partition(serials []string, size int) ([][]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	var chunks [][]string
	for start := 0; start < len(serials); start += size {
		end := start + size
		if end > len(serials) {
			end = len(serials)
		}
		chunks = append(chunks, serials[start:end:end])
	}
	return chunks, nil
}
