package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/headcast/internal/artifact"
	"github.com/avatarlab/headcast/internal/expression"
	"github.com/avatarlab/headcast/internal/pose"
)

type stubNets struct{}

func (stubNets) EncodeContent(_ context.Context, windows [][][]float32) ([][]float32, error) {
	out := make([][]float32, len(windows))
	for i := range out {
		out[i] = []float32{float32(i), 0}
	}
	return out, nil
}

func (stubNets) EncodeStyle(_ context.Context, _ [][]float32, _ []bool) ([]float32, error) {
	return []float32{0.5}, nil
}

func (stubNets) Decode(_ context.Context, content [][]float32, _ []float32) ([][]float32, error) {
	out := make([][]float32, len(content))
	for i := range out {
		out[i] = []float32{content[i][0], 1, 2, 3} // 4 expression dims
	}
	return out, nil
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0644))
}

func TestGenerateParamsConcatenatesExpressionAndPose(t *testing.T) {
	dir := t.TempDir()

	audioPath := filepath.Join(dir, "audio.json")
	audio := make([][]float32, 20)
	for i := range audio {
		audio[i] = []float32{float32(i), 1}
	}
	writeJSON(t, audioPath, audio)

	stylePath := filepath.Join(dir, "style.npy")
	styleRows := make([][]float32, 30)
	for i := range styleRows {
		styleRows[i] = []float32{float32(i)}
	}
	require.NoError(t, artifact.SaveMatrix(stylePath, styleRows))

	// 12 pose frames against 20 output frames: last pose repeats.
	posePath := filepath.Join(dir, "pose.npy")
	poseRows := make([][]float32, 12)
	for i := range poseRows {
		row := make([]float32, pose.Dim)
		row[0] = float32(i)
		poseRows[i] = row
	}
	require.NoError(t, artifact.SaveMatrix(posePath, poseRows))

	outPath := filepath.Join(dir, "params.npy")

	nets := stubNets{}
	p := New(expression.Models{Content: nets, Style: nets, Decoder: nets}, nil, nil, Config{
		AudioWindowSize: 5,
		AudioFrameRatio: 1.0,
		StyleMaxLen:     64,
	}, zerolog.Nop())

	n, err := p.GenerateParams(context.Background(), audioPath, stylePath, posePath, outPath)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	rows, err := artifact.LoadMatrix(outPath)
	require.NoError(t, err)
	require.Len(t, rows, 20)
	require.Len(t, rows[0], 4+pose.Dim)

	// Expression dims first, pose dims after.
	assert.Equal(t, float32(7), rows[7][0])
	assert.Equal(t, float32(7), rows[7][4]) // pose row 7 still real
	assert.Equal(t, float32(11), rows[19][4], "held last pose past frame 12")
}

func TestGenerateParamsMissingInputs(t *testing.T) {
	dir := t.TempDir()
	nets := stubNets{}
	p := New(expression.Models{Content: nets, Style: nets, Decoder: nets}, nil, nil, Config{
		AudioWindowSize: 5,
		AudioFrameRatio: 1.0,
		StyleMaxLen:     64,
	}, zerolog.Nop())

	_, err := p.GenerateParams(context.Background(),
		filepath.Join(dir, "absent.json"),
		filepath.Join(dir, "style.npy"),
		filepath.Join(dir, "pose.npy"),
		filepath.Join(dir, "out.npy"))
	require.Error(t, err)
}
