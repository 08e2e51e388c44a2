package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"videoforge/internal/http/handlers"
	"videoforge/internal/infra"
	"videoforge/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger, allowedOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	r.Get("/api/health", app.Health)

	r.Route("/api/keyframes", func(r chi.Router) {
		r.Post("/upload", app.UploadKeyframes)
		r.Get("/list", app.ListKeyframes)
		r.Get("/{product_name}/{frame_type}", app.GetKeyframe)
	})

	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", app.ListJobs)
		r.Get("/{job_id}", app.JobStatus)
	})

	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/generate", app.GenerateVideo)
		r.Get("/", app.ListVideos)
		r.Get("/download/{video_id}", app.DownloadVideo)
		r.Get("/{video_id}", app.VideoInfo)
		r.Delete("/{video_id}", app.DeleteVideo)
	})

	r.Route("/api/config", func(r chi.Router) {
		r.Get("/options", app.ConfigOptions)
		r.Get("/environment", app.ConfigEnvironment)
	})

	return r
}
