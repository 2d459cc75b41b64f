package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowIndicesLength(t *testing.T) {
	const length = 40
	for radius := 0; radius <= 15; radius++ {
		for center := 0; center < length; center++ {
			indices, err := WindowIndices(center, length, radius)
			require.NoError(t, err)
			require.Len(t, indices, 2*radius+1)
			for _, i := range indices {
				assert.GreaterOrEqual(t, i, 0)
				assert.Less(t, i, length)
			}
		}
	}
}

func TestWindowIndicesLeftClamp(t *testing.T) {
	indices, err := WindowIndices(0, 100, 13)
	require.NoError(t, err)
	require.Len(t, indices, 27)

	for i := 0; i < 13; i++ {
		assert.Equal(t, 0, indices[i], "index %d should clamp to 0", i)
	}
	assert.Equal(t, 0, indices[13])
	assert.Equal(t, 13, indices[26])
}

func TestWindowIndicesRightClamp(t *testing.T) {
	indices, err := WindowIndices(99, 100, 13)
	require.NoError(t, err)
	require.Len(t, indices, 27)

	for i := 14; i < 27; i++ {
		assert.Equal(t, 99, indices[i], "index %d should clamp to 99", i)
	}
	assert.Equal(t, 86, indices[0])
}

func TestWindowIndicesInterior(t *testing.T) {
	indices, err := WindowIndices(20, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{17, 18, 19, 20, 21, 22, 23}, indices)
}

func TestWindowIndicesInvalid(t *testing.T) {
	_, err := WindowIndices(0, 0, 13)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = WindowIndices(0, -5, 13)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = WindowIndices(0, 10, -1)
	require.ErrorIs(t, err, ErrInvalidInput)
}
