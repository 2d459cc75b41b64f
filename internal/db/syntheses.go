package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/avatarlab/headcast/internal/models"
)

func (db *DB) CreateSynthesis(ctx context.Context, s *models.Synthesis) error {
	query := `
		INSERT INTO syntheses (
			id, name, audio_features_path, wav_path, pose_path,
			style_path, source_image_path, status, overrides
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		s.ID, s.Name, s.AudioFeaturesPath, s.WavPath, s.PosePath,
		s.StylePath, s.SourceImagePath, s.Status, s.Overrides,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (db *DB) GetSynthesis(ctx context.Context, id uuid.UUID) (*models.Synthesis, error) {
	query := `
		SELECT
			id, name, audio_features_path, wav_path, pose_path,
			style_path, source_image_path, status, overrides,
			frame_count, audio_duration_ms, params_asset_id, video_asset_id,
			error_message, created_at, updated_at
		FROM syntheses
		WHERE id = $1
	`

	s := &models.Synthesis{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.AudioFeaturesPath, &s.WavPath, &s.PosePath,
		&s.StylePath, &s.SourceImagePath, &s.Status, &s.Overrides,
		&s.FrameCount, &s.AudioDurationMs, &s.ParamsAssetID, &s.VideoAssetID,
		&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("synthesis not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get synthesis: %w", err)
	}

	return s, nil
}

// ListSyntheses returns syntheses ordered by creation date (newest first).
// Supports optional status filter, limit, and offset for pagination.
func (db *DB) ListSyntheses(ctx context.Context, status string, limit, offset int) ([]models.Synthesis, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, name, audio_features_path, wav_path, pose_path,
			style_path, source_image_path, status, overrides,
			frame_count, audio_duration_ms, params_asset_id, video_asset_id,
			error_message, created_at, updated_at
		FROM syntheses
	`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query syntheses: %w", err)
	}
	defer rows.Close()

	var syntheses []models.Synthesis
	for rows.Next() {
		var s models.Synthesis
		err := rows.Scan(
			&s.ID, &s.Name, &s.AudioFeaturesPath, &s.WavPath, &s.PosePath,
			&s.StylePath, &s.SourceImagePath, &s.Status, &s.Overrides,
			&s.FrameCount, &s.AudioDurationMs, &s.ParamsAssetID, &s.VideoAssetID,
			&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan synthesis: %w", err)
		}
		syntheses = append(syntheses, s)
	}

	return syntheses, rows.Err()
}

// CountSyntheses returns the total row count for the list endpoint,
// honoring the same optional status filter.
func (db *DB) CountSyntheses(ctx context.Context, status string) (int, error) {
	var (
		count int
		err   error
	)
	if status != "" {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM syntheses WHERE status = $1`, status).Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM syntheses`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count syntheses: %w", err)
	}
	return count, nil
}

func (db *DB) UpdateSynthesisStatus(ctx context.Context, id uuid.UUID, status models.SynthesisStatus) error {
	query := `UPDATE syntheses SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateSynthesisError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE syntheses
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.SynthesisStatusFailed, errorMessage, id)
	return err
}

// UpdateSynthesisResult records the outputs of a completed run.
func (db *DB) UpdateSynthesisResult(ctx context.Context, id uuid.UUID, frameCount, audioDurationMs int, paramsAssetID, videoAssetID uuid.UUID) error {
	query := `
		UPDATE syntheses
		SET status = $1, frame_count = $2, audio_duration_ms = $3,
		    params_asset_id = $4, video_asset_id = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err := db.ExecContext(
		ctx, query,
		models.SynthesisStatusCompleted, frameCount, audioDurationMs,
		paramsAssetID, videoAssetID, id,
	)
	return err
}
