// Package sequence computes clamped symmetric index windows over finite
// time series. Windows always have their full length: near a boundary the
// first or last valid index repeats instead of the window shrinking, which
// biases boundary windows toward the edge frames.
package sequence

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports malformed or out-of-range sequence parameters.
var ErrInvalidInput = errors.New("invalid sequence input")

// WindowIndices returns the 2*radius+1 indices of a symmetric window
// centered on center, each clamped to [0, length). Indices need not be
// distinct.
func WindowIndices(center, length, radius int) ([]int, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: sequence length %d", ErrInvalidInput, length)
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: window radius %d", ErrInvalidInput, radius)
	}

	indices := make([]int, 0, 2*radius+1)
	for offset := -radius; offset <= radius; offset++ {
		i := center + offset
		if i < 0 {
			i = 0
		}
		if i >= length {
			i = length - 1
		}
		indices = append(indices, i)
	}
	return indices, nil
}
