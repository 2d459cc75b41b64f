package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type SynthesisStatus string

const (
	SynthesisStatusQueued     SynthesisStatus = "queued"
	SynthesisStatusGenerating SynthesisStatus = "generating"
	SynthesisStatusRendering  SynthesisStatus = "rendering"
	SynthesisStatusCompleted  SynthesisStatus = "completed"
	SynthesisStatusFailed     SynthesisStatus = "failed"
)

type AssetType string

const (
	AssetTypeExpressionParams AssetType = "expression_params"
	AssetTypeVideo            AssetType = "video"
	AssetTypeLogs             AssetType = "logs"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

// Synthesis is one talking-head generation request: a set of input
// artifacts plus the state and outputs of its run.
type Synthesis struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	AudioFeaturesPath string          `json:"audio_features_path"`
	WavPath           *string         `json:"wav_path,omitempty"` // nil = silent output
	PosePath          string          `json:"pose_path"`
	StylePath         string          `json:"style_path"`
	SourceImagePath   string          `json:"source_image_path"`
	Status            SynthesisStatus `json:"status"`
	// Overrides holds per-request tunables (window radius, batch size,
	// style start index) applied on top of the service defaults.
	Overrides       JSONB      `json:"overrides,omitempty"`
	FrameCount      *int       `json:"frame_count,omitempty"`
	AudioDurationMs *int       `json:"audio_duration_ms,omitempty"`
	ParamsAssetID   *uuid.UUID `json:"params_asset_id,omitempty"`
	VideoAssetID    *uuid.UUID `json:"video_asset_id,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Asset struct {
	ID            uuid.UUID `json:"id"`
	SynthesisID   uuid.UUID `json:"synthesis_id"`
	Type          AssetType `json:"type"`
	StorageBucket string    `json:"storage_bucket"`
	StoragePath   string    `json:"storage_path"`
	ContentType   *string   `json:"content_type,omitempty"`
	ByteSize      *int64    `json:"byte_size,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	SynthesisID  uuid.UUID  `json:"synthesis_id"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API responses
type SynthesisResponse struct {
	Synthesis
	VideoURL  *string `json:"video_url,omitempty"`
	ParamsURL *string `json:"params_url,omitempty"`
}

// SynthesisSummary is a lightweight DTO for the list endpoint.
type SynthesisSummary struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Status       SynthesisStatus `json:"status"`
	FrameCount   *int            `json:"frame_count,omitempty"`
	VideoURL     *string         `json:"video_url,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ListSynthesesResponse struct {
	Syntheses []SynthesisSummary `json:"syntheses"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type CreateSynthesisRequest struct {
	Name              string  `json:"name"`
	AudioFeaturesPath string  `json:"audio_features_path"`
	WavPath           *string `json:"wav_path,omitempty"`
	PosePath          string  `json:"pose_path"`
	StylePath         string  `json:"style_path"`
	SourceImagePath   *string `json:"source_image_path,omitempty"` // Default: env SOURCE_IMAGE
	Overrides         JSONB   `json:"overrides,omitempty"`
}

type CreateSynthesisResponse struct {
	SynthesisID uuid.UUID       `json:"synthesis_id"`
	Status      SynthesisStatus `json:"status"`
}
