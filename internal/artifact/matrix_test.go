package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.npy")
	rows := [][]float32{
		{1, 2, 3},
		{4, 5, 6},
		{-0.5, 0.25, 7},
	}

	require.NoError(t, SaveMatrix(path, rows))

	got, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestSaveMatrixRejectsRagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.npy")
	err := SaveMatrix(path, [][]float32{{1, 2}, {3}})
	require.Error(t, err)

	err = SaveMatrix(path, nil)
	require.Error(t, err)
}

func TestLoadTensorJSON(t *testing.T) {
	dir := t.TempDir()

	flat := filepath.Join(dir, "style.json")
	require.NoError(t, os.WriteFile(flat, []byte(`{"data": [[1, 2], [3, 4]], "dims": [2, 2]}`), 0644))
	rows, err := LoadMatrix(flat)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, rows)

	batched := filepath.Join(dir, "batched.json")
	require.NoError(t, os.WriteFile(batched, []byte(`{"data": [[[1, 2], [3, 4]]], "dims": [1, 2, 2]}`), 0644))
	rows, err = LoadMatrix(batched)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, rows)

	multi := filepath.Join(dir, "multi.json")
	require.NoError(t, os.WriteFile(multi, []byte(`{"data": [[[1]], [[2]]], "dims": [2, 1, 1]}`), 0644))
	_, err = LoadMatrix(multi)
	require.Error(t, err)
}
