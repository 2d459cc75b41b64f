package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avatarlab/headcast/internal/db"
	"github.com/avatarlab/headcast/internal/models"
	"github.com/avatarlab/headcast/internal/queue"
	"github.com/avatarlab/headcast/internal/storage"
)

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage

	// defaultSourceImage is applied when a request omits source_image_path
	defaultSourceImage string
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage, defaultSourceImage string) *Handler {
	return &Handler{
		db:                 database,
		queue:              q,
		storage:            stor,
		defaultSourceImage: defaultSourceImage,
	}
}

// CreateSynthesis handles POST /v1/syntheses
func (h *Handler) CreateSynthesis(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSynthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.AudioFeaturesPath == "" {
		respondError(w, http.StatusBadRequest, "audio_features_path is required")
		return
	}
	if req.PosePath == "" {
		respondError(w, http.StatusBadRequest, "pose_path is required")
		return
	}
	if req.StylePath == "" {
		respondError(w, http.StatusBadRequest, "style_path is required")
		return
	}

	sourceImage := h.defaultSourceImage
	if req.SourceImagePath != nil && *req.SourceImagePath != "" {
		sourceImage = *req.SourceImagePath
	}
	if sourceImage == "" {
		respondError(w, http.StatusBadRequest, "source_image_path is required")
		return
	}

	// Create synthesis
	synthesis := &models.Synthesis{
		ID:                uuid.New(),
		Name:              req.Name,
		AudioFeaturesPath: req.AudioFeaturesPath,
		WavPath:           req.WavPath,
		PosePath:          req.PosePath,
		StylePath:         req.StylePath,
		SourceImagePath:   sourceImage,
		Status:            models.SynthesisStatusQueued,
		Overrides:         req.Overrides,
	}

	if err := h.db.CreateSynthesis(r.Context(), synthesis); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create synthesis")
		return
	}

	// Create and enqueue job
	jobID := uuid.New()
	job := &models.Job{
		ID:          jobID,
		SynthesisID: synthesis.ID,
		Status:      models.JobStatusQueued,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueSynthesize(r.Context(), synthesis.ID, jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateSynthesisResponse{
		SynthesisID: synthesis.ID,
		Status:      synthesis.Status,
	})
}

// ListSyntheses handles GET /v1/syntheses
// Query params:
//   - status: filter by synthesis status (queued, generating, rendering, completed, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListSyntheses(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.SynthesisStatus(statusFilter) {
		case models.SynthesisStatusQueued, models.SynthesisStatusGenerating,
			models.SynthesisStatusRendering, models.SynthesisStatusCompleted,
			models.SynthesisStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, generating, rendering, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountSyntheses(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count syntheses")
		return
	}

	syntheses, err := h.db.ListSyntheses(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list syntheses")
		return
	}

	summaries := make([]models.SynthesisSummary, 0, len(syntheses))
	for _, s := range syntheses {
		summary := models.SynthesisSummary{
			ID:           s.ID,
			Name:         s.Name,
			Status:       s.Status,
			FrameCount:   s.FrameCount,
			ErrorMessage: s.ErrorMessage,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		}

		if s.VideoAssetID != nil {
			if asset, err := h.db.GetAsset(r.Context(), *s.VideoAssetID); err == nil {
				url := h.storage.GetPublicURL(asset.StoragePath)
				summary.VideoURL = &url
			}
		}

		summaries = append(summaries, summary)
	}

	respondJSON(w, http.StatusOK, models.ListSynthesesResponse{
		Syntheses: summaries,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

// GetSynthesis handles GET /v1/syntheses/{id}
func (h *Handler) GetSynthesis(w http.ResponseWriter, r *http.Request) {
	synthesisID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid synthesis ID")
		return
	}

	synthesis, err := h.db.GetSynthesis(r.Context(), synthesisID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Synthesis not found")
		return
	}

	response := models.SynthesisResponse{
		Synthesis: *synthesis,
	}

	if synthesis.VideoAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *synthesis.VideoAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.VideoURL = &url
		}
	}
	if synthesis.ParamsAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *synthesis.ParamsAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.ParamsURL = &url
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// GetSynthesisDownload handles GET /v1/syntheses/{id}/download
func (h *Handler) GetSynthesisDownload(w http.ResponseWriter, r *http.Request) {
	synthesisID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid synthesis ID")
		return
	}

	synthesis, err := h.db.GetSynthesis(r.Context(), synthesisID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Synthesis not found")
		return
	}

	if synthesis.VideoAssetID == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *synthesis.VideoAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	// Get signed URL (valid for 1 hour)
	signedURL, err := h.storage.GetSignedURL(r.Context(), asset.StoragePath, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetSynthesisJobs handles GET /v1/syntheses/{id}/debug/jobs
func (h *Handler) GetSynthesisJobs(w http.ResponseWriter, r *http.Request) {
	synthesisID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid synthesis ID")
		return
	}

	jobs, err := h.db.GetSynthesisJobs(r.Context(), synthesisID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
