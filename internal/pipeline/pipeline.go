// Package pipeline drives a full synthesis: audio features to aligned
// parameters, aligned parameters to an MP4 with muxed narration.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avatarlab/headcast/internal/artifact"
	"github.com/avatarlab/headcast/internal/audiofeat"
	"github.com/avatarlab/headcast/internal/expression"
	"github.com/avatarlab/headcast/internal/pose"
	"github.com/avatarlab/headcast/internal/render"
	"github.com/avatarlab/headcast/internal/services"
)

// Config holds the tunables for one pipeline instance.
type Config struct {
	AudioWindowSize int
	AudioFrameRatio float64
	StyleMaxLen     int
	StyleStartIndex int
	WindowRadius    int
	BatchSize       int
	FPS             int
}

// Pipeline binds the pretrained networks, the renderer backend, and the
// video muxer behind the two synthesis stages.
type Pipeline struct {
	models expression.Models
	gen    render.ImageGenerator
	mux    *services.FFmpegService
	cfg    Config
	log    zerolog.Logger
}

func New(models expression.Models, gen render.ImageGenerator, mux *services.FFmpegService, cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		models: models,
		gen:    gen,
		mux:    mux,
		cfg:    cfg,
		log:    log,
	}
}

// Item names the inputs and outputs of one synthesis.
type Item struct {
	AudioFeaturesPath string
	StylePath         string
	PosePath          string
	SourceImagePath   string
	WavPath           string // optional; empty means silent output
	ParamsPath        string // intermediate aligned-parameter artifact
	VideoPath         string
}

// GenerateParams runs the expression stage: audio features and a style
// clip become a per-frame expression sequence, the pose track is aligned
// to it, and the concatenated rows are saved as the intermediate
// artifact. Returns the frame count.
func (p *Pipeline) GenerateParams(ctx context.Context, audioPath, stylePath, posePath, outPath string) (int, error) {
	audio, err := audiofeat.Load(audioPath)
	if err != nil {
		return 0, fmt.Errorf("load audio features: %w", err)
	}
	styleSrc, err := artifact.LoadMatrix(stylePath)
	if err != nil {
		return 0, fmt.Errorf("load style source: %w", err)
	}

	exp, err := expression.Generate(ctx, p.models, audio, styleSrc, expression.Config{
		AudioWindowSize: p.cfg.AudioWindowSize,
		AudioFrameRatio: p.cfg.AudioFrameRatio,
		StyleMaxLen:     p.cfg.StyleMaxLen,
		StyleStartIndex: p.cfg.StyleStartIndex,
	})
	if err != nil {
		return 0, err
	}

	poseSeq, err := pose.Load(posePath)
	if err != nil {
		return 0, err
	}
	alignedPose, err := pose.Align(poseSeq, len(exp))
	if err != nil {
		return 0, err
	}

	rows := make([][]float32, len(exp))
	for i := range exp {
		row := make([]float32, 0, len(exp[i])+pose.Dim)
		row = append(row, exp[i]...)
		row = append(row, alignedPose[i]...)
		rows[i] = row
	}

	if err := artifact.SaveMatrix(outPath, rows); err != nil {
		return 0, fmt.Errorf("save parameters: %w", err)
	}

	p.log.Info().
		Int("frames", len(rows)).
		Str("params", outPath).
		Msg("generated aligned parameters")
	return len(rows), nil
}

// RenderVideo runs the rendering stage: the saved parameter rows are
// windowed, rendered against the source image in batches, and encoded to
// an MP4 with the narration muxed in.
func (p *Pipeline) RenderVideo(ctx context.Context, paramsPath, imagePath, wavPath, outPath string) error {
	rows, err := artifact.LoadMatrix(paramsPath)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}
	ref, err := render.LoadReferenceImage(imagePath)
	if err != nil {
		return err
	}

	frames, err := render.Render(ctx, p.gen, ref, rows, p.cfg.WindowRadius, p.cfg.BatchSize)
	if err != nil {
		return err
	}

	if err := p.mux.Mux(ctx, frames, p.cfg.FPS, wavPath, outPath); err != nil {
		return err
	}

	p.log.Info().
		Int("frames", len(frames)).
		Str("video", outPath).
		Msg("rendered video")
	return nil
}

// Process runs both stages for one item and returns the frame count.
func (p *Pipeline) Process(ctx context.Context, item Item) (int, error) {
	frames, err := p.GenerateParams(ctx, item.AudioFeaturesPath, item.StylePath, item.PosePath, item.ParamsPath)
	if err != nil {
		return 0, err
	}
	if err := p.RenderVideo(ctx, item.ParamsPath, item.SourceImagePath, item.WavPath, item.VideoPath); err != nil {
		return frames, err
	}
	return frames, nil
}
