// Package pose loads head-pose trajectories and reconciles them with the
// generated expression sequence length.
package pose

import (
	"errors"
	"fmt"

	"github.com/avatarlab/headcast/internal/artifact"
)

// Dim is the fixed width of a pose record: 3 rotation + 3 translation +
// 3 auxiliary scalars.
const Dim = 9

// ErrAlignment reports an empty pose or expression sequence.
var ErrAlignment = errors.New("pose alignment")

// Load reads a pose trajectory from a .npy matrix or the structured JSON
// tensor format and validates the (N, 9) contract.
func Load(path string) ([][]float32, error) {
	rows, err := artifact.LoadMatrix(path)
	if err != nil {
		return nil, fmt.Errorf("load pose %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty pose file %s", ErrAlignment, path)
	}
	if len(rows[0]) != Dim {
		return nil, fmt.Errorf("load pose %s: got %d columns, want %d", path, len(rows[0]), Dim)
	}
	return rows, nil
}

// Align returns exactly targetLen pose rows. A longer trajectory is
// truncated; a shorter one holds its last pose for the trailing frames,
// trading a static tail for the absence of resampling artifacts.
func Align(poseSeq [][]float32, targetLen int) ([][]float32, error) {
	if len(poseSeq) == 0 {
		return nil, fmt.Errorf("%w: empty pose sequence", ErrAlignment)
	}
	if targetLen <= 0 {
		return nil, fmt.Errorf("%w: target length %d", ErrAlignment, targetLen)
	}

	if len(poseSeq) >= targetLen {
		out := make([][]float32, targetLen)
		copy(out, poseSeq[:targetLen])
		return out, nil
	}

	out := make([][]float32, targetLen)
	copy(out, poseSeq)
	last := poseSeq[len(poseSeq)-1]
	for i := len(poseSeq); i < targetLen; i++ {
		out[i] = last
	}
	return out, nil
}
