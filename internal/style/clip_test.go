package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/headcast/internal/sequence"
)

func makeSource(n, dim int) [][]float32 {
	src := make([][]float32, n)
	for i := range src {
		row := make([]float32, dim)
		for j := range row {
			row[j] = float32(i)
		}
		src[i] = row
	}
	return src
}

func TestSampleLongSource(t *testing.T) {
	src := makeSource(300, 4)

	clip, mask, err := Sample(src, 256, 0)
	require.NoError(t, err)
	require.Len(t, clip, 256)
	assert.Nil(t, mask)
	assert.Equal(t, src[0], clip[0])
	assert.Equal(t, src[255], clip[255])
}

func TestSampleShortSource(t *testing.T) {
	src := makeSource(100, 4)

	clip, mask, err := Sample(src, 256, 0)
	require.NoError(t, err)
	require.Len(t, clip, 256)
	require.Len(t, mask, 256)

	for i := 0; i < 100; i++ {
		assert.Equal(t, src[i], clip[i])
		assert.True(t, mask[i])
	}
	for i := 100; i < 256; i++ {
		assert.Equal(t, make([]float32, 4), clip[i])
		assert.False(t, mask[i])
	}
}

func TestSampleStartIndex(t *testing.T) {
	src := makeSource(300, 2)

	clip, mask, err := Sample(src, 256, 20)
	require.NoError(t, err)
	assert.Nil(t, mask)
	assert.Equal(t, src[20], clip[0])

	// Start index close to the tail forces padding.
	clip, mask, err = Sample(src, 256, 250)
	require.NoError(t, err)
	require.NotNil(t, mask)
	assert.True(t, mask[49])
	assert.False(t, mask[50])
	assert.Equal(t, src[299], clip[49])
}

func TestSampleInvalid(t *testing.T) {
	_, _, err := Sample(nil, 256, 0)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)

	src := makeSource(10, 2)
	_, _, err = Sample(src, 0, 0)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)

	_, _, err = Sample(src, 256, 10)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)

	_, _, err = Sample(src, 256, -1)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)
}
