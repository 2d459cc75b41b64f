// Command synthesize runs the talking-head pipeline over a directory of
// audio feature files, producing one MP4 (and one parameter matrix) per
// input, without the job service.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avatarlab/headcast/internal/config"
	"github.com/avatarlab/headcast/internal/expression"
	"github.com/avatarlab/headcast/internal/model"
	"github.com/avatarlab/headcast/internal/pipeline"
	"github.com/avatarlab/headcast/internal/services"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadLocal()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create output directory")
	}

	engine, err := model.NewEngine(model.EngineConfig{
		ModelDir:       cfg.ModelDir,
		ManifestPath:   cfg.CheckpointManifest,
		ORTLibraryPath: cfg.ORTLibraryPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load models")
	}
	defer engine.Close()

	ffmpegSvc := services.NewFFmpegService(filepath.Join(cfg.TempDir, "headcast"))

	p := pipeline.New(
		expression.Models{Content: engine, Style: engine, Decoder: engine},
		engine,
		ffmpegSvc,
		pipeline.Config{
			AudioWindowSize: cfg.AudioWindowSize,
			AudioFrameRatio: cfg.AudioFrameRatio,
			StyleMaxLen:     cfg.StyleMaxLen,
			StyleStartIndex: cfg.StyleStartIndex,
			WindowRadius:    cfg.ExpressionWindowRadius,
			BatchSize:       cfg.RenderBatchSize,
			FPS:             cfg.VideoFPS,
		},
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, err := collectItems(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to scan input directory")
	}
	if len(items) == 0 {
		logger.Fatal().Str("dir", cfg.PhonemeDir).Msg("no audio feature files found")
	}
	logger.Info().Int("items", len(items)).Msg("starting batch synthesis")

	var failed []string
	for _, item := range items {
		base := strings.TrimSuffix(filepath.Base(item.AudioFeaturesPath), filepath.Ext(item.AudioFeaturesPath))
		logger.Info().Str("item", base).Msg("synthesizing")

		frames, err := p.Process(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				logger.Error().Str("item", base).Msg("interrupted")
				os.Exit(1)
			}
			logger.Error().Err(err).Str("item", base).Msg("synthesis failed")
			if !cfg.ContinueOnError {
				os.Exit(1)
			}
			failed = append(failed, base)
			continue
		}
		logger.Info().Str("item", base).Int("frames", frames).Str("video", item.VideoPath).Msg("done")
	}

	if len(failed) > 0 {
		logger.Error().Strs("failed", failed).Int("count", len(failed)).Msg("batch finished with failures")
		os.Exit(1)
	}
	logger.Info().Msg("batch finished")
}

// collectItems pairs each audio feature file with its pose track, an
// optional narration wav, and the shared style clip and source image.
// Items run in name order.
func collectItems(cfg *config.Config) ([]pipeline.Item, error) {
	entries, err := filepath.Glob(filepath.Join(cfg.PhonemeDir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	wavDir := cfg.WavDir
	if wavDir == "" {
		wavDir = cfg.PhonemeDir
	}

	items := make([]pipeline.Item, 0, len(entries))
	for _, audioPath := range entries {
		base := strings.TrimSuffix(filepath.Base(audioPath), ".json")

		posePath := filepath.Join(cfg.PoseDir, base+".npy")
		if _, err := os.Stat(posePath); err != nil {
			alt := filepath.Join(cfg.PoseDir, base+".json")
			if _, altErr := os.Stat(alt); altErr != nil {
				return nil, err
			}
			posePath = alt
		}

		wavPath := filepath.Join(wavDir, base+".wav")
		if _, err := os.Stat(wavPath); err != nil {
			wavPath = "" // silent output
		}

		items = append(items, pipeline.Item{
			AudioFeaturesPath: audioPath,
			StylePath:         cfg.StyleClip,
			PosePath:          posePath,
			SourceImagePath:   cfg.SourceImage,
			WavPath:           wavPath,
			ParamsPath:        filepath.Join(cfg.OutputDir, base+".npy"),
			VideoPath:         filepath.Join(cfg.OutputDir, base+".mp4"),
		})
	}
	return items, nil
}
