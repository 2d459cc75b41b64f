// Package audiofeat loads audio feature streams produced by the upstream
// phoneme extractor and slices them into fixed-width per-frame windows for
// the content encoder.
package audiofeat

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/avatarlab/headcast/internal/sequence"
)

// Stream is a finite audio feature time series, one vector per timestep,
// fully materialized before windowing.
type Stream [][]float32

// Load reads a JSON feature stream: either an array of per-timestep
// vectors, or a flat array of scalars which is promoted to 1-dim vectors.
func Load(path string) (Stream, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio features: %w", err)
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err == nil {
		return Stream(vectors), nil
	}

	var scalars []float32
	if err := json.Unmarshal(raw, &scalars); err != nil {
		return nil, fmt.Errorf("parse audio features %s: %w", path, err)
	}
	out := make(Stream, len(scalars))
	for i, v := range scalars {
		out[i] = []float32{v}
	}
	return out, nil
}

// Windows builds one window of width consecutive timesteps per output
// frame, boundary-clamped with the same policy as sequence.WindowIndices.
// frameRatio maps an output frame index to its nominal audio timestep; the
// number of output frames is len(s)/frameRatio.
func Windows(s Stream, width int, frameRatio float64) ([][][]float32, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty audio stream", sequence.ErrInvalidInput)
	}
	if width <= 0 || width%2 == 0 {
		return nil, fmt.Errorf("%w: audio window width %d (must be odd)", sequence.ErrInvalidInput, width)
	}
	if frameRatio <= 0 {
		return nil, fmt.Errorf("%w: audio frame ratio %v", sequence.ErrInvalidInput, frameRatio)
	}

	frames := int(float64(len(s)) / frameRatio)
	if frames == 0 {
		frames = 1
	}
	radius := width / 2

	out := make([][][]float32, 0, frames)
	for f := 0; f < frames; f++ {
		center := int(float64(f) * frameRatio)
		indices, err := sequence.WindowIndices(center, len(s), radius)
		if err != nil {
			return nil, err
		}
		win := make([][]float32, len(indices))
		for j, i := range indices {
			win[j] = s[i]
		}
		out = append(out, win)
	}
	return out, nil
}
