package handlers

import (
	"encoding/json"
	"net/http"

	"videoforge/internal/infra"
	"videoforge/internal/orchestrator"
	"videoforge/internal/store"
)

// App is the handler container: the store, the orchestrator and the local
// directories the HTTP surface reads from and writes to.
type App struct {
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Logger       infra.Logger
	KeyframesDir string
	S3Bucket     string
}

func NewApp(st *store.Store, orch *orchestrator.Orchestrator, logger infra.Logger, keyframesDir, s3Bucket string) *App {
	return &App{
		Store:        st,
		Orchestrator: orch,
		Logger:       logger,
		KeyframesDir: keyframesDir,
		S3Bucket:     s3Bucket,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
