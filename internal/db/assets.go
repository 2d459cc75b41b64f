package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/avatarlab/headcast/internal/models"
)

func (db *DB) CreateAsset(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (
			id, synthesis_id, type, storage_bucket,
			storage_path, content_type, byte_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		asset.ID, asset.SynthesisID, asset.Type,
		asset.StorageBucket, asset.StoragePath, asset.ContentType, asset.ByteSize,
	).Scan(&asset.CreatedAt)
}

func (db *DB) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	query := `
		SELECT
			id, synthesis_id, type, storage_bucket,
			storage_path, content_type, byte_size, created_at
		FROM assets
		WHERE id = $1
	`

	asset := &models.Asset{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID, &asset.SynthesisID, &asset.Type,
		&asset.StorageBucket, &asset.StoragePath, &asset.ContentType,
		&asset.ByteSize, &asset.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("asset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

func (db *DB) GetSynthesisAssets(ctx context.Context, synthesisID uuid.UUID) ([]models.Asset, error) {
	query := `
		SELECT
			id, synthesis_id, type, storage_bucket,
			storage_path, content_type, byte_size, created_at
		FROM assets
		WHERE synthesis_id = $1
		ORDER BY created_at
	`

	rows, err := db.QueryContext(ctx, query, synthesisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var asset models.Asset
		err := rows.Scan(
			&asset.ID, &asset.SynthesisID, &asset.Type,
			&asset.StorageBucket, &asset.StoragePath, &asset.ContentType,
			&asset.ByteSize, &asset.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}
