package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoforge/internal/domain"
	"videoforge/internal/generation"
	"videoforge/internal/http/handlers"
	"videoforge/internal/http/httpapi"
	"videoforge/internal/orchestrator"
	"videoforge/internal/store"
)

type stubGenerator struct{}

func (stubGenerator) Submit(ctx context.Context, req generation.Request) (generation.OperationHandle, error) {
	return generation.OperationHandle("op-" + req.ProductName), nil
}

func (stubGenerator) Poll(ctx context.Context, handle generation.OperationHandle) (generation.OperationStatus, error) {
	return generation.OperationStatus{
		Status:         generation.StatusCompleted,
		OutputLocation: "s3://demo-bucket/out/output.mp4",
	}, nil
}

type stubObjects struct{}

func (stubObjects) Fetch(ctx context.Context, remoteURI, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("generated media"), 0o644)
}

func (stubObjects) Archive(ctx context.Context, localPath, remoteURI string) (string, error) {
	return remoteURI, nil
}

type stubProcessor struct{}

func (stubProcessor) ApplyEffect(ctx context.Context, inputPath string) (string, error) {
	final := strings.TrimSuffix(inputPath, ".mp4") + "_final.mp4"
	return final, os.WriteFile(final, []byte("boomeranged"), 0o644)
}

type fixture struct {
	store  *store.Store
	router http.Handler
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "database.json"), zerolog.Nop())
	require.NoError(t, err)

	orch := orchestrator.New(st, stubGenerator{}, stubObjects{}, stubProcessor{}, zerolog.Nop(), orchestrator.Config{
		OutputBucket:  "demo-bucket",
		VideosDir:     filepath.Join(dir, "videos"),
		PollInterval:  time.Millisecond,
		MaxConcurrent: 2,
	})
	t.Cleanup(orch.Close)

	app := handlers.NewApp(st, orch, zerolog.Nop(), filepath.Join(dir, "keyframes"), "demo-bucket")
	router := httpapi.NewRouter(app, zerolog.Nop(), []string{"*"})
	return &fixture{store: st, router: router, dir: dir}
}

func (f *fixture) do(t *testing.T, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// pngBytes renders a tiny valid PNG so uploads pass content sniffing and
// decoding.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, product string, frames map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if product != "" {
		require.NoError(t, mw.WriteField("product_name", product))
	}
	for field, data := range frames {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadKeyframes(t *testing.T, f *fixture, product string) {
	t.Helper()
	body, contentType := multipartUpload(t, product, map[string][]byte{"start_frame": pngBytes(t)})
	rec := f.do(t, http.MethodPost, "/api/keyframes/upload", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])
}

func TestUploadKeyframes_StoresAndLists(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartUpload(t, "watch_01", map[string][]byte{
		"start_frame": pngBytes(t),
		"end_frame":   pngBytes(t),
	})
	rec := f.do(t, http.MethodPost, "/api/keyframes/upload", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "watch_01", resp["product_name"])
	assert.NotEmpty(t, resp["start_frame"])
	assert.NotEmpty(t, resp["end_frame"])

	list := decodeJSON(t, f.do(t, http.MethodGet, "/api/keyframes/list", nil, ""))
	assert.EqualValues(t, 1, list["count"])
}

func TestUploadKeyframes_MissingProductName(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartUpload(t, "", map[string][]byte{"start_frame": pngBytes(t)})
	rec := f.do(t, http.MethodPost, "/api/keyframes/upload", body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "product_name is required")
}

func TestUploadKeyframes_RejectsNonImagePayload(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartUpload(t, "watch_01", map[string][]byte{
		"start_frame": []byte("definitely not an image"),
	})
	rec := f.do(t, http.MethodPost, "/api/keyframes/upload", body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid start_frame type")
}

// webpBytes fabricates a RIFF/WEBP container of the given size; webp is the
// one accepted format stored without decoding.
func webpBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "RIFF")
	copy(data[8:], "WEBP")
	return data
}

func TestUploadKeyframes_RejectsOversizeFrame(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartUpload(t, "watch_01", map[string][]byte{
		"start_frame": webpBytes(32<<20 + 1),
	})
	rec := f.do(t, http.MethodPost, "/api/keyframes/upload", body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")
}

func TestUploadKeyframes_StoresWebpIntact(t *testing.T) {
	f := newFixture(t)
	original := webpBytes(1024)
	body, contentType := multipartUpload(t, "watch_01", map[string][]byte{
		"start_frame": original,
	})
	rec := f.do(t, http.MethodPost, "/api/keyframes/upload", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	path, ok := decodeJSON(t, rec)["start_frame"].(string)
	require.True(t, ok)
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, stored, "stored frame must be byte-identical to the upload")
}

func TestGetKeyframe(t *testing.T) {
	f := newFixture(t)
	uploadKeyframes(t, f, "watch_01")

	rec := f.do(t, http.MethodGet, "/api/keyframes/watch_01/start", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = f.do(t, http.MethodGet, "/api/keyframes/watch_01/end", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no end frame was uploaded")

	rec = f.do(t, http.MethodGet, "/api/keyframes/watch_01/middle", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateVideo_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	uploadKeyframes(t, f, "lamp_02")

	payload := bytes.NewBufferString(`{"product_name":"watch_01","prompt":"spin"}`)
	rec := f.do(t, http.MethodPost, "/api/videos/generate", payload, "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	// the error names the registered products to help the caller
	assert.Contains(t, rec.Body.String(), "lamp_02")
}

func TestGenerateVideo_RunsToCompletion(t *testing.T) {
	f := newFixture(t)
	uploadKeyframes(t, f, "watch_01")

	payload := bytes.NewBufferString(`{"product_name":"watch_01","prompt":"slow rotation"}`)
	rec := f.do(t, http.MethodPost, "/api/videos/generate", payload, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decodeJSON(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Video generation started", resp["message"])
	jobID, ok := resp["job_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		job, err := f.store.Job(jobID)
		return err == nil && job.State == domain.JobStateCompleted
	}, 5*time.Second, time.Millisecond)

	status := f.do(t, http.MethodGet, "/api/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, status.Code)
	body := decodeJSON(t, status)
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 100, body["progress"])
	assert.Equal(t, "/api/videos/download/"+jobID, body["video_url"])
}

func TestGenerateVideo_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/videos/generate", bytes.NewBufferString("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatus_Unknown(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/jobs/no-such-job", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadVideo(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	original := filepath.Join(dir, "watch_01_abcd1234.mp4")
	final := filepath.Join(dir, "watch_01_abcd1234_final.mp4")
	require.NoError(t, os.WriteFile(original, []byte("original media"), 0o644))
	require.NoError(t, os.WriteFile(final, []byte("final media"), 0o644))
	require.NoError(t, f.store.PutVideo(domain.VideoArtifact{
		VideoID:           "vid-1",
		ProductName:       "watch_01",
		CreatedAt:         time.Now().UTC(),
		OriginalVideoPath: original,
		FinalVideoPath:    final,
		S3URI:             "s3://demo-bucket/product-videos/watch_01/x/watch_01_abcd1234_final.mp4",
	}))

	rec := f.do(t, http.MethodGet, "/api/videos/download/vid-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "final media", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `watch_01_final.mp4`)

	rec = f.do(t, http.MethodGet, "/api/videos/download/vid-1?original=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "original media", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `watch_01.mp4`)

	rec = f.do(t, http.MethodGet, "/api/videos/download/no-such-video", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteVideo_RemovesRecordAndFiles(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	original := filepath.Join(dir, "watch_01.mp4")
	final := filepath.Join(dir, "watch_01_final.mp4")
	require.NoError(t, os.WriteFile(original, []byte("original"), 0o644))
	require.NoError(t, os.WriteFile(final, []byte("final"), 0o644))
	require.NoError(t, f.store.PutVideo(domain.VideoArtifact{
		VideoID:           "vid-1",
		ProductName:       "watch_01",
		CreatedAt:         time.Now().UTC(),
		OriginalVideoPath: original,
		FinalVideoPath:    final,
	}))

	rec := f.do(t, http.MethodDelete, "/api/videos/vid-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NoFileExists(t, original)
	assert.NoFileExists(t, final)

	rec = f.do(t, http.MethodDelete, "/api/videos/vid-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigEndpoints(t *testing.T) {
	f := newFixture(t)

	options := decodeJSON(t, f.do(t, http.MethodGet, "/api/config/options", nil, ""))
	assert.Contains(t, options, "aspect_ratios")
	assert.Contains(t, options, "durations")
	assert.Contains(t, options, "resolutions")
	assert.Contains(t, options, "regions")

	env := decodeJSON(t, f.do(t, http.MethodGet, "/api/config/environment", nil, ""))
	assert.Equal(t, "demo-bucket", env["s3_bucket_name"])
}
