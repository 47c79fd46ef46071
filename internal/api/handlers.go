package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adreel/adreel/internal/catalog"
	"github.com/adreel/adreel/internal/db"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/queue"
	"github.com/adreel/adreel/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxLogoBytes caps logo uploads at 5 MB.
const maxLogoBytes = 5 << 20

type Handler struct {
	db           *db.DB
	queue        *queue.Queue
	storage      *storage.Storage
	catalog      *catalog.Catalog
	videosBucket string
	logosBucket  string
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage, cat *catalog.Catalog, videosBucket, logosBucket string) *Handler {
	return &Handler{
		db:           database,
		queue:        q,
		storage:      stor,
		catalog:      cat,
		videosBucket: videosBucket,
		logosBucket:  logosBucket,
	}
}

// CreateVideo handles POST /v1/videos
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if strings.TrimSpace(req.BusinessName) == "" {
		respondError(w, http.StatusBadRequest, "business_name is required")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		respondError(w, http.StatusBadRequest, "category is required")
		return
	}
	if len(req.Clips) == 0 {
		respondError(w, http.StatusBadRequest, "At least one clip is required")
		return
	}

	// Set defaults
	font := req.Font
	if font == "" {
		font = "Montserrat"
	}
	theme := req.Theme
	if theme == "" {
		theme = "dark"
	}

	job := &models.RenderJob{
		ID:           uuid.New(),
		BusinessName: req.BusinessName,
		Category:     req.Category,
		Font:         font,
		Theme:        theme,
		LogoURL:      req.LogoURL,
		SourceClips:  req.Clips,
		Storyboard:   req.Storyboard,
		Status:       models.JobStatusQueued,
		Version:      1,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueRenderVideo(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateVideoResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// ListVideos handles GET /v1/videos
// Query params:
//   - status: filter by job status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.JobStatus(statusFilter) {
		case models.JobStatusQueued, models.JobStatusAssetsNormalized,
			models.JobStatusStoryboardReady, models.JobStatusNarrationReady,
			models.JobStatusTimelineFrozen, models.JobStatusRendering,
			models.JobStatusUploaded, models.JobStatusCompleted,
			models.JobStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter")
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

	total, err := h.db.CountJobs(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count jobs")
		return
	}

	jobs, err := h.db.ListJobs(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	responses := make([]models.RenderJobResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, h.buildJobResponse(&jobs[i]))
	}

	respondJSON(w, http.StatusOK, models.ListJobsResponse{
		Jobs:   responses,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetVideo handles GET /v1/videos/{id}
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, h.buildJobResponse(job))
}

// RerenderVideo handles POST /v1/videos/{id}/rerender
// Re-renders a finished (completed or failed) job as a new version. The
// previous artifact stays live until the new render completes, then gets
// replaced.
func (h *Handler) RerenderVideo(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.PrepareRerender(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	if err := h.queue.EnqueueRenderVideo(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateVideoResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// SearchClips handles GET /v1/clips?category=<name>
// Returns stock clips for the category, or a close-match suggestion when the
// category has no clips.
func (h *Handler) SearchClips(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		respondError(w, http.StatusBadRequest, "category query parameter is required")
		return
	}

	count := 0
	if c := r.URL.Query().Get("count"); c != "" {
		if parsed, err := strconv.Atoi(c); err == nil && parsed > 0 {
			count = parsed
		}
	}

	clips, suggestion, err := h.catalog.Search(r.Context(), category, count)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to search clips")
		return
	}

	respondJSON(w, http.StatusOK, models.ClipSearchResponse{
		Clips:      clips,
		Suggestion: suggestion,
	})
}

// UploadLogo handles POST /v1/logos (multipart form, field "file")
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing file upload (field: file)")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".svg":
		// allowed
	default:
		respondError(w, http.StatusBadRequest, "Unsupported logo format (png, jpg, webp, svg)")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read file upload")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s%s", uuid.New(), ext)
	if err := h.storage.Upload(r.Context(), h.logosBucket, key, data, contentType); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store logo")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"url": h.storage.GetPublicURL(h.logosBucket, key),
	})
}

func (h *Handler) buildJobResponse(job *models.RenderJob) models.RenderJobResponse {
	response := models.RenderJobResponse{RenderJob: *job}
	if job.OutputKey != nil {
		url := h.storage.GetPublicURL(h.videosBucket, *job.OutputKey)
		response.VideoURL = &url
	}
	return response
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
