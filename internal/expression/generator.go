// Package expression turns an audio feature stream plus a style reference
// into a per-frame expression-parameter sequence by orchestrating the
// three expression networks.
package expression

import (
	"context"
	"fmt"

	"github.com/avatarlab/headcast/internal/audiofeat"
	"github.com/avatarlab/headcast/internal/style"
)

// ContentEncoder embeds batched audio windows, one content vector per
// output frame.
type ContentEncoder interface {
	EncodeContent(ctx context.Context, windows [][][]float32) ([][]float32, error)
}

// StyleEncoder summarizes a style clip into a single style code. mask is
// nil when the clip has no padding; otherwise false entries mark padded
// rows the encoder must ignore.
type StyleEncoder interface {
	EncodeStyle(ctx context.Context, clip [][]float32, mask []bool) ([]float32, error)
}

// Decoder produces the expression-parameter sequence from the full
// content sequence and one style code.
type Decoder interface {
	Decode(ctx context.Context, content [][]float32, styleCode []float32) ([][]float32, error)
}

// Models bundles the three expression networks.
type Models struct {
	Content ContentEncoder
	Style   StyleEncoder
	Decoder Decoder
}

// Config holds the windowing and sampling tunables for one generation run.
type Config struct {
	AudioWindowSize int     // odd width of each audio window
	AudioFrameRatio float64 // audio timesteps per output frame
	StyleMaxLen     int     // bounded style clip length
	StyleStartIndex int     // first style row to sample
}

// Generate runs the whole sequence in one pass: audio windows are built
// per frame, the content encoder runs once on the full batch, the style
// encoder runs once on the sampled clip, and the decoder runs once over
// the full content sequence. There is no per-frame sequential dependency;
// streaming is traded for batch efficiency and temporal consistency.
func Generate(ctx context.Context, m Models, audio audiofeat.Stream, styleSrc [][]float32, cfg Config) ([][]float32, error) {
	windows, err := audiofeat.Windows(audio, cfg.AudioWindowSize, cfg.AudioFrameRatio)
	if err != nil {
		return nil, fmt.Errorf("build audio windows: %w", err)
	}

	content, err := m.Content.EncodeContent(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("content encoder: %w", err)
	}
	if len(content) != len(windows) {
		return nil, fmt.Errorf("content encoder returned %d embeddings for %d frames", len(content), len(windows))
	}

	clip, mask, err := style.Sample(styleSrc, cfg.StyleMaxLen, cfg.StyleStartIndex)
	if err != nil {
		return nil, fmt.Errorf("sample style clip: %w", err)
	}

	styleCode, err := m.Style.EncodeStyle(ctx, clip, mask)
	if err != nil {
		return nil, fmt.Errorf("style encoder: %w", err)
	}

	exp, err := m.Decoder.Decode(ctx, content, styleCode)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	if len(exp) != len(content) {
		return nil, fmt.Errorf("decoder returned %d frames for %d content embeddings", len(exp), len(content))
	}
	return exp, nil
}
