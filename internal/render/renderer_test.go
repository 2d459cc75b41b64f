package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/headcast/internal/pose"
	"github.com/avatarlab/headcast/internal/sequence"
)

// fakeGenerator paints each output image with the window's center value
// so frame identity and order survive into the pixels.
type fakeGenerator struct {
	chunks [][]int // frame counts per chunk, recorded per call
	fail   bool
}

func (g *fakeGenerator) GenerateFrames(_ context.Context, ref *Image, windows [][][]float32) ([][]float32, error) {
	if g.fail {
		return nil, errors.New("device lost")
	}
	g.chunks = append(g.chunks, []int{len(windows)})

	plane := ref.Width * ref.Height
	out := make([][]float32, len(windows))
	for i, win := range windows {
		center := win[0][len(win[0])/2]
		img := make([]float32, 3*plane)
		for p := range img {
			img[p] = center / 1000 // keep inside [-1, 1]
		}
		out[i] = img
	}
	return out, nil
}

func testRef() *Image {
	return &Image{Width: 4, Height: 4, Pix: make([]float32, 3*16)}
}

func makeAligned(n, dims int) [][]float32 {
	rows := make([][]float32, n)
	for i := range rows {
		row := make([]float32, dims)
		for j := range row {
			row[j] = float32(i)
		}
		rows[i] = row
	}
	return rows
}

func TestRenderBatchSizeIsSemanticNoop(t *testing.T) {
	aligned := makeAligned(50, 7)
	ref := testRef()

	baseline, err := Render(context.Background(), &fakeGenerator{}, ref, aligned, 13, 1)
	require.NoError(t, err)
	require.Len(t, baseline, 50)

	for _, bs := range []int{3, 7, 50, 64} {
		got, err := Render(context.Background(), &fakeGenerator{}, ref, aligned, 13, bs)
		require.NoError(t, err)
		assert.Equal(t, baseline, got, "batch size %d must not change output", bs)
	}
}

func TestRenderPreservesFrameOrder(t *testing.T) {
	aligned := makeAligned(10, 3)
	gen := &fakeGenerator{}

	frames, err := Render(context.Background(), gen, testRef(), aligned, 2, 4)
	require.NoError(t, err)
	require.Len(t, frames, 10)

	// Chunks of 4, 4, 2 in order.
	assert.Equal(t, [][]int{{4}, {4}, {2}}, gen.chunks)

	for i, fr := range frames {
		want := uint8((float32(i)/1000 + 1) / 2 * 255)
		assert.Equal(t, want, fr.Pix[0], "frame %d carries the wrong center value", i)
	}
}

func TestRenderGeneratorFailureIsFatal(t *testing.T) {
	_, err := Render(context.Background(), &fakeGenerator{fail: true}, testRef(), makeAligned(5, 3), 2, 2)
	require.ErrorIs(t, err, ErrRender)
}

func TestRenderInvalidInput(t *testing.T) {
	gen := &fakeGenerator{}

	_, err := Render(context.Background(), gen, testRef(), nil, 13, 4)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)

	_, err = Render(context.Background(), gen, testRef(), makeAligned(5, 3), 13, 0)
	require.ErrorIs(t, err, sequence.ErrInvalidInput)
}

func TestRenderAfterPoseAlignment(t *testing.T) {
	// 50 expression frames and a 60-frame pose track end as exactly 50
	// rendered frames in original order.
	exp := makeAligned(50, 4)
	poseSeq := makeAligned(60, pose.Dim)

	alignedPose, err := pose.Align(poseSeq, len(exp))
	require.NoError(t, err)

	aligned := make([][]float32, len(exp))
	for i := range exp {
		aligned[i] = append(append([]float32{}, exp[i]...), alignedPose[i]...)
	}

	frames, err := Render(context.Background(), &fakeGenerator{}, testRef(), aligned, 13, 8)
	require.NoError(t, err)
	require.Len(t, frames, 50)

	for i, fr := range frames {
		want := uint8((float32(i)/1000 + 1) / 2 * 255)
		assert.Equal(t, want, fr.Pix[0])
	}
}

func TestToFrameClampsAndScales(t *testing.T) {
	fr := toFrame([]float32{-2, 0, 2}, 1, 1)
	assert.Equal(t, []byte{0, 127, 255}, fr.Pix)
}
