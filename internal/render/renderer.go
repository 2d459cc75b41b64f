// Package render builds per-frame windowed parameter tensors, batches
// them through the face generator, and reassembles the output frames in
// original temporal order.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/avatarlab/headcast/internal/sequence"
)

// ErrRender reports a failure inside the batched image-generation call.
// Not retried: a generator failure is fatal for the rendering job.
var ErrRender = errors.New("render")

// Image is a reference image in CHW float32 layout, normalized to [-1, 1].
type Image struct {
	Width  int
	Height int
	Pix    []float32 // 3 * Height * Width
}

// Frame is one rendered RGB24 output frame.
type Frame struct {
	Width  int
	Height int
	Pix    []byte // Height * Width * 3
}

// ImageGenerator runs the pretrained face generator on one chunk of
// windowed parameter tensors against a single reference image, returning
// one CHW float32 image in [-1, 1] per window. Inference-only by contract.
type ImageGenerator interface {
	GenerateFrames(ctx context.Context, ref *Image, windows [][][]float32) ([][]float32, error)
}

// LoadReferenceImage decodes a PNG/JPEG file into the normalized CHW
// layout the generator expects.
func LoadReferenceImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load reference image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode reference image %s: %w", path, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	pix := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			pix[i] = norm(r)
			pix[plane+i] = norm(g)
			pix[2*plane+i] = norm(bl)
		}
	}
	return &Image{Width: w, Height: h, Pix: pix}, nil
}

func norm(v uint32) float32 {
	return float32(v)/32767.5 - 1 // 16-bit color to [-1, 1]
}

// Render renders one frame per aligned parameter row. Each frame gets a
// (dims, 2*radius+1) window over the aligned rows, the windows are split
// into consecutive chunks of at most batchSize, and the generator runs
// once per chunk with the reference image broadcast across the chunk.
// Chunking never reorders or drops frames, so concatenating chunk outputs
// reproduces the original frame order; batchSize is purely a
// throughput/memory trade-off.
func Render(ctx context.Context, gen ImageGenerator, ref *Image, aligned [][]float32, radius, batchSize int) ([]Frame, error) {
	if len(aligned) == 0 {
		return nil, fmt.Errorf("%w: empty aligned parameter sequence", sequence.ErrInvalidInput)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", sequence.ErrInvalidInput, batchSize)
	}

	n := len(aligned)
	dims := len(aligned[0])

	windows := make([][][]float32, n)
	for f := 0; f < n; f++ {
		indices, err := sequence.WindowIndices(f, n, radius)
		if err != nil {
			return nil, err
		}
		// dims-major layout, matching the generator's (dims, window) input
		win := make([][]float32, dims)
		for d := 0; d < dims; d++ {
			row := make([]float32, len(indices))
			for j, t := range indices {
				row[j] = aligned[t][d]
			}
			win[d] = row
		}
		windows[f] = win
	}

	frames := make([]Frame, 0, n)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}

		imgs, err := gen.GenerateFrames(ctx, ref, windows[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: chunk [%d:%d): %w", ErrRender, start, end, err)
		}
		if len(imgs) != end-start {
			return nil, fmt.Errorf("%w: generator returned %d images for %d windows", ErrRender, len(imgs), end-start)
		}
		for _, img := range imgs {
			frames = append(frames, toFrame(img, ref.Width, ref.Height))
		}
	}
	return frames, nil
}

// toFrame clamps a CHW float image to [-1, 1] and converts it to
// interleaved 8-bit RGB.
func toFrame(chw []float32, w, h int) Frame {
	plane := w * h
	pix := make([]byte, 3*plane)
	for i := 0; i < plane; i++ {
		for c := 0; c < 3; c++ {
			v := chw[c*plane+i]
			if v < -1 {
				v = -1
			}
			if v > 1 {
				v = 1
			}
			pix[i*3+c] = uint8((v + 1) / 2 * 255)
		}
	}
	return Frame{Width: w, Height: h, Pix: pix}
}
