package audiofeat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/headcast/internal/sequence"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadVectors(t *testing.T) {
	path := writeTemp(t, "feat.json", `[[0.1, 0.2], [0.3, 0.4], [0.5, 0.6]]`)

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, []float32{0.3, 0.4}, s[1])
}

func TestLoadScalars(t *testing.T) {
	path := writeTemp(t, "feat.json", `[1, 2, 3, 4]`)

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s, 4)
	assert.Equal(t, []float32{3}, s[2])
}

func TestLoadMalformed(t *testing.T) {
	path := writeTemp(t, "feat.json", `{"not": "a stream"}`)

	_, err := Load(path)
	require.Error(t, err)
}

func makeStream(n int) Stream {
	s := make(Stream, n)
	for i := range s {
		s[i] = []float32{float32(i)}
	}
	return s
}

func TestWindowsShape(t *testing.T) {
	s := makeStream(20)

	wins, err := Windows(s, 5, 1.0)
	require.NoError(t, err)
	require.Len(t, wins, 20)
	for _, w := range wins {
		assert.Len(t, w, 5)
	}
}

func TestWindowsClamping(t *testing.T) {
	s := makeStream(10)

	wins, err := Windows(s, 5, 1.0)
	require.NoError(t, err)

	// First frame repeats timestep 0 on the left.
	assert.Equal(t, float32(0), wins[0][0][0])
	assert.Equal(t, float32(0), wins[0][1][0])
	assert.Equal(t, float32(0), wins[0][2][0])
	assert.Equal(t, float32(1), wins[0][3][0])

	// Last frame repeats timestep 9 on the right.
	last := wins[9]
	assert.Equal(t, float32(9), last[2][0])
	assert.Equal(t, float32(9), last[3][0])
	assert.Equal(t, float32(9), last[4][0])
}

func TestWindowsFrameRatio(t *testing.T) {
	s := makeStream(20)

	wins, err := Windows(s, 3, 2.0)
	require.NoError(t, err)
	require.Len(t, wins, 10)

	// Frame 4 is centered on timestep 8.
	assert.Equal(t, float32(8), wins[4][1][0])
}

func TestWindowsInvalid(t *testing.T) {
	_, err := Windows(nil, 5, 1.0)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)

	_, err = Windows(makeStream(10), 4, 1.0)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)

	_, err = Windows(makeStream(10), 5, 0)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)
}
