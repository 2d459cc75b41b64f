package expression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/headcast/internal/audiofeat"
)

type fakeModels struct {
	contentCalls int
	styleCalls   int
	decodeCalls  int
	gotMask      []bool
	gotClipLen   int
}

func (f *fakeModels) EncodeContent(_ context.Context, windows [][][]float32) ([][]float32, error) {
	f.contentCalls++
	out := make([][]float32, len(windows))
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *fakeModels) EncodeStyle(_ context.Context, clip [][]float32, mask []bool) ([]float32, error) {
	f.styleCalls++
	f.gotClipLen = len(clip)
	f.gotMask = mask
	return []float32{1, 2}, nil
}

func (f *fakeModels) Decode(_ context.Context, content [][]float32, styleCode []float32) ([][]float32, error) {
	f.decodeCalls++
	out := make([][]float32, len(content))
	for i := range out {
		out[i] = []float32{content[i][0], styleCode[0]}
	}
	return out, nil
}

func makeAudio(n int) audiofeat.Stream {
	s := make(audiofeat.Stream, n)
	for i := range s {
		s[i] = []float32{float32(i), 0}
	}
	return s
}

func makeStyle(n int) [][]float32 {
	src := make([][]float32, n)
	for i := range src {
		src[i] = []float32{float32(i)}
	}
	return src
}

func TestGenerateSingleBatchedCalls(t *testing.T) {
	f := &fakeModels{}
	m := Models{Content: f, Style: f, Decoder: f}
	cfg := Config{AudioWindowSize: 5, AudioFrameRatio: 1.0, StyleMaxLen: 64, StyleStartIndex: 0}

	exp, err := Generate(context.Background(), m, makeAudio(30), makeStyle(100), cfg)
	require.NoError(t, err)
	require.Len(t, exp, 30)

	// Each network runs exactly once per generation, never per frame.
	assert.Equal(t, 1, f.contentCalls)
	assert.Equal(t, 1, f.styleCalls)
	assert.Equal(t, 1, f.decodeCalls)

	assert.Equal(t, 64, f.gotClipLen)
	assert.Nil(t, f.gotMask, "long style source should carry no mask")
}

func TestGeneratePropagatesPadMask(t *testing.T) {
	f := &fakeModels{}
	m := Models{Content: f, Style: f, Decoder: f}
	cfg := Config{AudioWindowSize: 5, AudioFrameRatio: 1.0, StyleMaxLen: 64, StyleStartIndex: 0}

	_, err := Generate(context.Background(), m, makeAudio(10), makeStyle(40), cfg)
	require.NoError(t, err)

	require.Len(t, f.gotMask, 64)
	assert.True(t, f.gotMask[39])
	assert.False(t, f.gotMask[40])
}

func TestGenerateEmptyAudio(t *testing.T) {
	f := &fakeModels{}
	m := Models{Content: f, Style: f, Decoder: f}
	cfg := Config{AudioWindowSize: 5, AudioFrameRatio: 1.0, StyleMaxLen: 64}

	_, err := Generate(context.Background(), m, nil, makeStyle(40), cfg)
	require.Error(t, err)
	assert.Zero(t, f.contentCalls)
}
