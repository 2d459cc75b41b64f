package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/avatarlab/headcast/internal/db"
	"github.com/avatarlab/headcast/internal/expression"
	"github.com/avatarlab/headcast/internal/models"
	"github.com/avatarlab/headcast/internal/pipeline"
	"github.com/avatarlab/headcast/internal/queue"
	"github.com/avatarlab/headcast/internal/render"
	"github.com/avatarlab/headcast/internal/services"
	"github.com/avatarlab/headcast/internal/storage"
)

type Worker struct {
	db        *db.DB
	queue     *queue.Queue
	storage   *storage.Storage
	nets      expression.Models
	gen       render.ImageGenerator
	ffmpeg    *services.FFmpegService
	baseCfg   pipeline.Config
	tempDir   string
	log       zerolog.Logger
	uploadSem chan struct{} // Limits concurrent Supabase uploads to prevent congestion
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	nets expression.Models,
	gen render.ImageGenerator,
	ffmpegSvc *services.FFmpegService,
	baseCfg pipeline.Config,
	tempDir string,
	logger zerolog.Logger,
) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		storage:   stor,
		nets:      nets,
		gen:       gen,
		ffmpeg:    ffmpegSvc,
		baseCfg:   baseCfg,
		tempDir:   tempDir,
		log:       logger,
		uploadSem: make(chan struct{}, 2), // Allow max 2 concurrent uploads
	}
}

// uploadWithLimit wraps an upload call with a semaphore to prevent storage congestion.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
		// Acquired slot
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	w.log.Debug().Str("label", label).Msg("uploading")
	return fn()
}

// Start begins processing synthesis jobs
func (w *Worker) Start(ctx context.Context, concurrency int) {
	w.log.Info().Int("concurrency", concurrency).Msg("worker started")

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueSynthesize, w.handleSynthesize)
	}

	<-ctx.Done()
	w.log.Info().Msg("worker shutting down")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				w.log.Error().Err(err).Str("queue", queueName).Msg("dequeue failed")
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			w.log.Info().
				Str("job", job.ID.String()).
				Str("synthesis", job.SynthesisID.String()).
				Msg("processing job")

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				w.log.Error().Err(err).Msg("failed to update job status")
			}

			if err := handler(ctx, job); err != nil {
				w.log.Error().Err(err).Str("job", job.ID.String()).Msg("job failed")
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				w.log.Info().Str("job", job.ID.String()).Msg("job completed")
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// jobConfig applies per-request overrides on top of the service defaults.
func (w *Worker) jobConfig(overrides models.JSONB) pipeline.Config {
	cfg := w.baseCfg
	if overrides == nil {
		return cfg
	}
	if v, ok := overrides["window_radius"].(float64); ok && int(v) >= 0 {
		cfg.WindowRadius = int(v)
	}
	if v, ok := overrides["batch_size"].(float64); ok && int(v) > 0 {
		cfg.BatchSize = int(v)
	}
	if v, ok := overrides["style_start_index"].(float64); ok && int(v) >= 0 {
		cfg.StyleStartIndex = int(v)
	}
	return cfg
}

// handleSynthesize runs one full synthesis: parameter generation,
// rendering, and artifact upload. Each job gets its own scratch
// directory so concurrent jobs never share intermediate files.
func (w *Worker) handleSynthesize(ctx context.Context, job *queue.Job) error {
	synthesis, err := w.db.GetSynthesis(ctx, job.SynthesisID)
	if err != nil {
		return fmt.Errorf("failed to get synthesis: %w", err)
	}

	jobDir, err := os.MkdirTemp(w.tempDir, "synthesis-"+synthesis.ID.String()+"-")
	if err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(jobDir)

	p := pipeline.New(w.nets, w.gen, w.ffmpeg, w.jobConfig(synthesis.Overrides), w.log)

	paramsPath := filepath.Join(jobDir, "params.npy")
	videoPath := filepath.Join(jobDir, "output.mp4")

	// Stage 1: expression generation + pose alignment
	if err := w.db.UpdateSynthesisStatus(ctx, synthesis.ID, models.SynthesisStatusGenerating); err != nil {
		return fmt.Errorf("failed to update synthesis status: %w", err)
	}

	frameCount, err := p.GenerateParams(ctx, synthesis.AudioFeaturesPath, synthesis.StylePath, synthesis.PosePath, paramsPath)
	if err != nil {
		w.db.UpdateSynthesisError(ctx, synthesis.ID, err.Error())
		return fmt.Errorf("parameter generation failed: %w", err)
	}

	// Stage 2: batched rendering + mux
	if err := w.db.UpdateSynthesisStatus(ctx, synthesis.ID, models.SynthesisStatusRendering); err != nil {
		return fmt.Errorf("failed to update synthesis status: %w", err)
	}

	wavPath := ""
	if synthesis.WavPath != nil {
		wavPath = *synthesis.WavPath
	}
	if err := p.RenderVideo(ctx, paramsPath, synthesis.SourceImagePath, wavPath, videoPath); err != nil {
		w.db.UpdateSynthesisError(ctx, synthesis.ID, err.Error())
		return fmt.Errorf("rendering failed: %w", err)
	}

	audioDurationMs := 0
	if wavPath != "" {
		if d, err := w.ffmpeg.GetAudioDuration(ctx, wavPath); err == nil {
			audioDurationMs = d
		} else {
			w.log.Warn().Err(err).Msg("could not measure audio duration")
		}
	}

	// Upload both artifacts concurrently
	paramsAsset := &models.Asset{
		ID:            uuid.New(),
		SynthesisID:   synthesis.ID,
		Type:          models.AssetTypeExpressionParams,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(synthesis.ID, "params.npy"),
		ContentType:   strPtr("application/octet-stream"),
	}
	videoAsset := &models.Asset{
		ID:            uuid.New(),
		SynthesisID:   synthesis.ID,
		Type:          models.AssetTypeVideo,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(synthesis.ID, "output.mp4"),
		ContentType:   strPtr("video/mp4"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.uploadWithLimit(gctx, "params", func() error {
			return w.storage.UploadFile(gctx, paramsAsset.StoragePath, paramsPath, "application/octet-stream")
		}); err != nil {
			return fmt.Errorf("failed to upload parameters: %w", err)
		}
		if info, err := os.Stat(paramsPath); err == nil {
			paramsAsset.ByteSize = int64Ptr(info.Size())
		}
		return w.db.CreateAsset(gctx, paramsAsset)
	})
	g.Go(func() error {
		if err := w.uploadWithLimit(gctx, "video", func() error {
			return w.storage.UploadFile(gctx, videoAsset.StoragePath, videoPath, "video/mp4")
		}); err != nil {
			return fmt.Errorf("failed to upload video: %w", err)
		}
		if info, err := os.Stat(videoPath); err == nil {
			videoAsset.ByteSize = int64Ptr(info.Size())
		}
		return w.db.CreateAsset(gctx, videoAsset)
	})
	if err := g.Wait(); err != nil {
		w.db.UpdateSynthesisError(ctx, synthesis.ID, err.Error())
		return err
	}

	return w.db.UpdateSynthesisResult(ctx, synthesis.ID, frameCount, audioDurationMs, paramsAsset.ID, videoAsset.ID)
}

// Helper functions
func strPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
