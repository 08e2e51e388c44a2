package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"videoforge/internal/domain"
)

const maxUploadBytes = 32 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadKeyframes stores the start (and optional end) frame images and
// registers them under the product name, replacing any previous set.
func (a *App) UploadKeyframes(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	productName := strings.TrimSpace(r.FormValue("product_name"))
	if productName == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "product_name is required")
		return
	}

	startPath, err := a.saveFrame(r, "start_frame", true)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	endPath, err := a.saveFrame(r, "end_frame", false)
	if err != nil {
		os.Remove(startPath)
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	set := domain.KeyframeSet{ProductName: productName, StartFrame: startPath}
	if endPath != "" {
		set.EndFrame = &endPath
	}
	if err := a.Store.RegisterKeyframes(set); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to register keyframes")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"success":      true,
		"product_name": productName,
		"start_frame":  startPath,
		"end_frame":    set.EndFrame,
	})
}

// saveFrame validates one uploaded image and writes it under the keyframes
// directory with a fresh name. Returns "" when an optional field is absent.
func (a *App) saveFrame(r *http.Request, field string, required bool) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if required {
			return "", fmt.Errorf("%s is required", field)
		}
		return "", nil
	}
	defer file.Close()

	// read one byte past the limit so an oversize file is rejected instead of
	// silently stored truncated
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %v", field, err)
	}
	if len(data) > maxUploadBytes {
		return "", fmt.Errorf("%s exceeds the %d byte limit", field, maxUploadBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("invalid %s type: %s", field, contentType)
	}
	// webp is stored as-is; the other formats must actually decode.
	if contentType != "image/webp" {
		if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("%s is not a decodable image: %v", field, err)
		}
	}

	if headerExt := strings.ToLower(filepath.Ext(header.Filename)); headerExt == ".jpeg" {
		ext = ".jpg"
	}
	path := filepath.Join(a.KeyframesDir, uuid.NewString()+ext)
	if err := os.MkdirAll(a.KeyframesDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure keyframes directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("store %s: %v", field, err)
	}
	return path, nil
}

// ListKeyframes returns every registered keyframe set.
func (a *App) ListKeyframes(w http.ResponseWriter, r *http.Request) {
	sets := a.Store.KeyframeSets()
	products := make([]map[string]any, 0, len(sets))
	for _, set := range sets {
		products = append(products, map[string]any{
			"product_name": set.ProductName,
			"start_frame":  set.StartFrame,
			"end_frame":    set.EndFrame,
			"uploaded_at":  set.UploadedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "products": products, "count": len(products)})
}

// GetKeyframe serves the start or end frame image for a product.
func (a *App) GetKeyframe(w http.ResponseWriter, r *http.Request) {
	productName := chi.URLParam(r, "product_name")
	frameType := chi.URLParam(r, "frame_type")
	if frameType != "start" && frameType != "end" {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid frame type, use 'start' or 'end'")
		return
	}

	set, err := a.Store.Keyframes(productName)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	path := set.StartFrame
	if frameType == "end" {
		if set.EndFrame == nil {
			a.error(w, http.StatusNotFound, "not_found", fmt.Sprintf("no end frame for product %q", productName))
			return
		}
		path = *set.EndFrame
	}
	if _, err := os.Stat(path); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "keyframe file not found")
		return
	}
	http.ServeFile(w, r, path)
}
