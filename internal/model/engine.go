package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/avatarlab/headcast/internal/render"
)

// EngineConfig locates the exported model bundle.
type EngineConfig struct {
	ModelDir       string // directory holding the .onnx graphs
	ManifestPath   string // checkpoint manifest sidecar
	ORTLibraryPath string // optional override for the onnxruntime shared library
}

// Engine runs the four pretrained networks through ONNX Runtime. One
// session per network; all sessions share the process-wide runtime
// environment. Engine satisfies the encoder/decoder interfaces of the
// expression package and the image-generator interface of the render
// package.
type Engine struct {
	mu sync.Mutex // ort sessions are not safe for concurrent Run

	content   *ort.DynamicAdvancedSession
	style     *ort.DynamicAdvancedSession
	decoder   *ort.DynamicAdvancedSession
	generator *ort.DynamicAdvancedSession
}

var ortInit sync.Once

func initRuntime(libPath string) error {
	var err error
	ortInit.Do(func() {
		if libPath == "" {
			libPath = os.Getenv("ONNXRUNTIME_LIB_PATH")
		}
		if libPath == "" {
			libPath = "/usr/local/lib/libonnxruntime.so"
			if _, statErr := os.Stat("/usr/lib/libonnxruntime.so"); statErr == nil {
				libPath = "/usr/lib/libonnxruntime.so"
			}
		}
		ort.SetSharedLibraryPath(libPath)
		err = ort.InitializeEnvironment()
	})
	if err != nil {
		return fmt.Errorf("%w: initialize onnxruntime: %w", ErrModelLoad, err)
	}
	return nil
}

// NewEngine validates the checkpoint manifest and opens one inference
// session per network.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := initRuntime(cfg.ORTLibraryPath); err != nil {
		return nil, err
	}

	manifest, err := LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{}
	sessions := []struct {
		dst     **ort.DynamicAdvancedSession
		file    string
		inputs  []string
		outputs []string
	}{
		{&e.content, "content_encoder.onnx", []string{"audio_windows"}, []string{"content"}},
		{&e.style, "style_encoder.onnx", []string{"style_clip", "pad_mask"}, []string{"style_code"}},
		{&e.decoder, "decoder.onnx", []string{"content", "style_code"}, []string{"expression"}},
		{&e.generator, "generator.onnx", []string{"source_image", "params"}, []string{"frames"}},
	}
	for _, s := range sessions {
		sess, err := ort.NewDynamicAdvancedSession(filepath.Join(cfg.ModelDir, s.file), s.inputs, s.outputs, nil)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("%w: open session %s: %w", ErrModelLoad, s.file, err)
		}
		*s.dst = sess
	}
	return e, nil
}

// Close destroys all sessions. The runtime environment stays up for the
// life of the process.
func (e *Engine) Close() {
	for _, s := range []*ort.DynamicAdvancedSession{e.content, e.style, e.decoder, e.generator} {
		if s != nil {
			s.Destroy()
		}
	}
	e.content, e.style, e.decoder, e.generator = nil, nil, nil, nil
}

// run executes one session under the engine lock, honoring ctx
// cancellation before dispatch. outputs[0] is owned by the caller.
func (e *Engine) run(ctx context.Context, sess *ort.DynamicAdvancedSession, inputs []ort.Value) (*ort.Tensor[float32], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	outputs := []ort.Value{nil}
	if err := sess.Run(inputs, outputs); err != nil {
		return nil, err
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		outputs[0].Destroy()
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	return out, nil
}

// EncodeContent embeds the full batch of audio windows in one session
// run, returning one content vector per frame.
func (e *Engine) EncodeContent(ctx context.Context, windows [][][]float32) ([][]float32, error) {
	n := len(windows)
	if n == 0 {
		return nil, fmt.Errorf("no audio windows")
	}
	width := len(windows[0])
	feat := len(windows[0][0])

	flat := make([]float32, 0, n*width*feat)
	for _, win := range windows {
		for _, vec := range win {
			flat = append(flat, vec...)
		}
	}
	in, err := ort.NewTensor([]int64{int64(n), int64(width), int64(feat)}, flat)
	if err != nil {
		return nil, fmt.Errorf("build audio tensor: %w", err)
	}
	defer in.Destroy()

	out, err := e.run(ctx, e.content, []ort.Value{in})
	if err != nil {
		return nil, fmt.Errorf("content encoder: %w", err)
	}
	defer out.Destroy()

	return splitRows(out.GetData(), n)
}

// EncodeStyle summarizes a style clip into a single style code. A nil
// mask means every row is real.
func (e *Engine) EncodeStyle(ctx context.Context, clip [][]float32, mask []bool) ([]float32, error) {
	rows := len(clip)
	if rows == 0 {
		return nil, fmt.Errorf("empty style clip")
	}
	dim := len(clip[0])

	flat := make([]float32, 0, rows*dim)
	for _, row := range clip {
		flat = append(flat, row...)
	}
	clipTensor, err := ort.NewTensor([]int64{1, int64(rows), int64(dim)}, flat)
	if err != nil {
		return nil, fmt.Errorf("build style tensor: %w", err)
	}
	defer clipTensor.Destroy()

	maskData := make([]float32, rows)
	for i := range maskData {
		if mask == nil || mask[i] {
			maskData[i] = 1
		}
	}
	maskTensor, err := ort.NewTensor([]int64{1, int64(rows)}, maskData)
	if err != nil {
		return nil, fmt.Errorf("build mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	out, err := e.run(ctx, e.style, []ort.Value{clipTensor, maskTensor})
	if err != nil {
		return nil, fmt.Errorf("style encoder: %w", err)
	}
	defer out.Destroy()

	return append([]float32{}, out.GetData()...), nil
}

// Decode maps the full content sequence plus one style code to the
// expression-parameter sequence.
func (e *Engine) Decode(ctx context.Context, content [][]float32, styleCode []float32) ([][]float32, error) {
	n := len(content)
	if n == 0 {
		return nil, fmt.Errorf("empty content sequence")
	}
	dim := len(content[0])

	flat := make([]float32, 0, n*dim)
	for _, row := range content {
		flat = append(flat, row...)
	}
	contentTensor, err := ort.NewTensor([]int64{1, int64(n), int64(dim)}, flat)
	if err != nil {
		return nil, fmt.Errorf("build content tensor: %w", err)
	}
	defer contentTensor.Destroy()

	styleTensor, err := ort.NewTensor([]int64{1, int64(len(styleCode))}, append([]float32{}, styleCode...))
	if err != nil {
		return nil, fmt.Errorf("build style-code tensor: %w", err)
	}
	defer styleTensor.Destroy()

	out, err := e.run(ctx, e.decoder, []ort.Value{contentTensor, styleTensor})
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	defer out.Destroy()

	return splitRows(out.GetData(), n)
}

// GenerateFrames renders one chunk of windowed parameter tensors,
// broadcasting the reference image across the batch.
func (e *Engine) GenerateFrames(ctx context.Context, ref *render.Image, windows [][][]float32) ([][]float32, error) {
	n := len(windows)
	if n == 0 {
		return nil, fmt.Errorf("empty window chunk")
	}
	dims := len(windows[0])
	width := len(windows[0][0])
	plane := 3 * ref.Width * ref.Height

	refFlat := make([]float32, 0, n*plane)
	for b := 0; b < n; b++ {
		refFlat = append(refFlat, ref.Pix...)
	}
	refTensor, err := ort.NewTensor([]int64{int64(n), 3, int64(ref.Height), int64(ref.Width)}, refFlat)
	if err != nil {
		return nil, fmt.Errorf("build image tensor: %w", err)
	}
	defer refTensor.Destroy()

	paramFlat := make([]float32, 0, n*dims*width)
	for _, win := range windows {
		for _, row := range win {
			paramFlat = append(paramFlat, row...)
		}
	}
	paramTensor, err := ort.NewTensor([]int64{int64(n), int64(dims), int64(width)}, paramFlat)
	if err != nil {
		return nil, fmt.Errorf("build params tensor: %w", err)
	}
	defer paramTensor.Destroy()

	out, err := e.run(ctx, e.generator, []ort.Value{refTensor, paramTensor})
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	defer out.Destroy()

	return splitRows(out.GetData(), n)
}

// splitRows slices a flat batch-major tensor into n equal rows.
func splitRows(data []float32, n int) ([][]float32, error) {
	if len(data)%n != 0 {
		return nil, fmt.Errorf("tensor length %d not divisible by batch %d", len(data), n)
	}
	stride := len(data) / n
	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		rows[i] = append([]float32{}, data[i*stride:(i+1)*stride]...)
	}
	return rows, nil
}
