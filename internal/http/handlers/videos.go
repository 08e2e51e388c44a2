package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"videoforge/internal/domain"
)

type generateRequest struct {
	ProductName string                    `json:"product_name"`
	Prompt      string                    `json:"prompt"`
	S3Bucket    string                    `json:"s3_bucket"`
	Settings    domain.GenerationSettings `json:"settings"`
}

// GenerateVideo validates the product synchronously and schedules the
// generation pipeline; the response carries only the job id.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	jobID, err := a.Orchestrator.StartJob(r.Context(), req.ProductName, req.Prompt, req.S3Bucket, req.Settings)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		default:
			a.Logger.Error().Err(err).Msg("handlers: start job failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to start generation")
		}
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"success": true,
		"job_id":  jobID,
		"message": "Video generation started",
	})
}

// ListVideos returns all artifact records.
func (a *App) ListVideos(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"videos": a.Store.Videos()})
}

// VideoInfo returns one artifact record by id.
func (a *App) VideoInfo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")
	artifact, err := a.Store.Video(videoID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}
	a.json(w, http.StatusOK, artifact)
}

// DownloadVideo serves the final processed media, or the original
// pre-processed media when ?original=true.
func (a *App) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")
	artifact, err := a.Store.Video(videoID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}

	path := artifact.FinalVideoPath
	filename := artifact.ProductName + "_final.mp4"
	if r.URL.Query().Get("original") == "true" {
		path = artifact.OriginalVideoPath
		filename = artifact.ProductName + ".mp4"
	}
	if _, err := os.Stat(path); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "video file not found")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}

// DeleteVideo removes the artifact record and its backing files. The
// originating job's terminal record is left as-is: recorded history is
// immutable.
func (a *App) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")
	artifact, err := a.Store.DeleteVideo(videoID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}

	for _, path := range []string{artifact.OriginalVideoPath, artifact.FinalVideoPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.Logger.Warn().Err(err).Str("path", path).Msg("handlers: remove video file failed")
		}
	}

	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Video " + artifact.ProductName + " deleted",
	})
}
