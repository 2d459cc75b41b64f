package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest() *Manifest {
	return &Manifest{
		Parameters: map[string]TensorInfo{
			"content_encoder.conv.weight": {Shape: []int64{64, 1, 3}, DType: "float32"},
			"content_encoder.conv.bias":   {Shape: []int64{64}, DType: "float32"},
			"style_encoder.attn.weight":   {Shape: []int64{128, 128}, DType: "float32"},
			"decoder.out.weight":          {Shape: []int64{64, 256}, DType: "float32"},
			"discriminator.final.weight":  {Shape: []int64{1, 64}, DType: "float32"},
			"optimizer.step":              {Shape: []int64{1}, DType: "int64"},
		},
		Expected: map[Component][]string{
			ComponentContentEncoder: {"conv.weight", "conv.bias"},
			ComponentStyleEncoder:   {"attn.weight"},
			ComponentDecoder:        {"out.weight"},
		},
	}
}

func TestPartitionStripsPrefixesAndSkipsUnknown(t *testing.T) {
	parts := testManifest().Partition()

	assert.Len(t, parts[ComponentContentEncoder], 2)
	assert.Contains(t, parts[ComponentContentEncoder], "conv.weight")
	assert.Contains(t, parts[ComponentStyleEncoder], "attn.weight")
	assert.Contains(t, parts[ComponentDecoder], "out.weight")

	// Training-only parameters never land in any partition.
	for _, part := range parts {
		assert.NotContains(t, part, "discriminator.final.weight")
		assert.NotContains(t, part, "optimizer.step")
	}
}

func TestValidateAcceptsCompleteManifest(t *testing.T) {
	require.NoError(t, testManifest().Validate())
}

func TestValidateFailsOnMissingParameter(t *testing.T) {
	m := testManifest()
	m.Expected[ComponentDecoder] = append(m.Expected[ComponentDecoder], "out.bias")

	err := m.Validate()
	require.ErrorIs(t, err, ErrModelLoad)
	assert.Contains(t, err.Error(), "decoder")
	assert.Contains(t, err.Error(), "out.bias")
}

func TestValidateFailsOnMissingComponentList(t *testing.T) {
	m := testManifest()
	delete(m.Expected, ComponentStyleEncoder)

	require.ErrorIs(t, m.Validate(), ErrModelLoad)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"parameters": {"content_encoder.conv.weight": {"shape": [64, 1, 3], "dtype": "float32"}},
		"expected": {"content_encoder": ["conv.weight"]}
	}`), 0644))

	m, err := LoadManifest(good)
	require.NoError(t, err)
	assert.Equal(t, []int64{64, 1, 3}, m.Parameters["content_encoder.conv.weight"].Shape)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"parameters": {}}`), 0644))
	_, err = LoadManifest(empty)
	require.ErrorIs(t, err, ErrModelLoad)

	_, err = LoadManifest(filepath.Join(dir, "absent.json"))
	require.ErrorIs(t, err, ErrModelLoad)
}
