// Package style samples bounded-length style reference clips for the
// style encoder.
package style

import (
	"fmt"

	"github.com/avatarlab/headcast/internal/sequence"
)

// Sample extracts a clip of exactly maxLen rows from src starting at
// startIdx. When fewer than maxLen rows are available the clip is padded
// with zero vectors and a mask is returned marking real rows true and
// padding false; the mask lets the style encoder exclude padding from the
// style embedding. When enough rows are available the mask is nil.
func Sample(src [][]float32, maxLen, startIdx int) ([][]float32, []bool, error) {
	if len(src) == 0 {
		return nil, nil, fmt.Errorf("%w: empty style source", sequence.ErrInvalidInput)
	}
	if maxLen <= 0 {
		return nil, nil, fmt.Errorf("%w: style max length %d", sequence.ErrInvalidInput, maxLen)
	}
	if startIdx < 0 || startIdx >= len(src) {
		return nil, nil, fmt.Errorf("%w: style start index %d (source length %d)", sequence.ErrInvalidInput, startIdx, len(src))
	}

	avail := src[startIdx:]
	if len(avail) >= maxLen {
		clip := make([][]float32, maxLen)
		copy(clip, avail[:maxLen])
		return clip, nil, nil
	}

	dim := len(src[0])
	clip := make([][]float32, maxLen)
	mask := make([]bool, maxLen)
	for i := range clip {
		if i < len(avail) {
			clip[i] = avail[i]
			mask[i] = true
		} else {
			clip[i] = make([]float32, dim)
		}
	}
	return clip, mask, nil
}
