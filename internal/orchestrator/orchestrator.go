// Package orchestrator drives media-generation jobs through their state
// machine in the background, one execution per job id.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"videoforge/internal/domain"
	"videoforge/internal/generation"
	"videoforge/internal/infra"
	"videoforge/internal/media"
	"videoforge/internal/store"
	"videoforge/internal/transfer"
)

// Config carries the orchestration tunables.
type Config struct {
	// OutputBucket is the default bucket when a request does not name one.
	OutputBucket string
	// VideosDir is where fetched and processed media land locally.
	VideosDir string
	// PollInterval is the delay between generation status queries.
	PollInterval time.Duration
	// MaxConcurrent bounds how many job pipelines run at once.
	MaxConcurrent int
	// DownloadURLPrefix is prepended to the job id to form video_url.
	DownloadURLPrefix string
}

// Orchestrator owns the background execution engine. Each StartJob call
// creates one job record and one goroutine; the goroutine is the job's single
// writer for its whole life.
type Orchestrator struct {
	store     *store.Store
	generator generation.Client
	objects   transfer.ObjectStore
	processor media.Processor
	logger    infra.Logger
	cfg       Config

	sem       *semaphore.Weighted
	baseCtx   context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// New wires the orchestrator to its collaborators.
func New(st *store.Store, gen generation.Client, objects transfer.ObjectStore, proc media.Processor, logger infra.Logger, cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.DownloadURLPrefix == "" {
		cfg.DownloadURLPrefix = "/api/videos/download/"
	}
	baseCtx, cancelAll := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     st,
		generator: gen,
		objects:   objects,
		processor: proc,
		logger:    logger,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		baseCtx:   baseCtx,
		cancelAll: cancelAll,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// StartJob validates the product synchronously, creates the job record and
// schedules the pipeline. The returned id is the caller's only correlation
// point; pipeline outcomes are observed by polling the job store.
func (o *Orchestrator) StartJob(ctx context.Context, productName, prompt, bucket string, settings domain.GenerationSettings) (string, error) {
	keyframes, err := o.store.Keyframes(productName)
	if err != nil {
		return "", err
	}
	if bucket == "" {
		bucket = o.cfg.OutputBucket
	}
	if bucket == "" {
		return "", fmt.Errorf("%w: output bucket is required", domain.ErrValidation)
	}
	settings = settings.ApplyDefaults()

	job, err := o.store.CreateJob(productName)
	if err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithCancel(o.baseCtx)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel()
		reason := "orchestrator shutting down"
		o.store.UpdateJob(job.ID, domain.JobStateFailed, 0, "Error: "+reason, &reason)
		return "", errors.New(reason)
	}
	o.cancels[job.ID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	go o.execute(jobCtx, job, keyframes, prompt, bucket, settings)

	return job.ID, nil
}

// Cancel asks a running job's pipeline to stop. The pipeline observes the
// cancellation at its next suspension point and records the job as failed
// with reason "cancelled".
func (o *Orchestrator) Cancel(jobID string) error {
	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no running job %q", domain.ErrNotFound, jobID)
	}
	cancel()
	return nil
}

// Close cancels all in-flight pipelines and waits for them to drain.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancelAll()
	o.wg.Wait()
}

// execute runs the four pipeline steps in strict sequence. Every step failure
// short-circuits into the failed state; nothing escapes the goroutine.
func (o *Orchestrator) execute(ctx context.Context, job domain.Job, keyframes domain.KeyframeSet, prompt, bucket string, settings domain.GenerationSettings) {
	defer o.wg.Done()
	defer func() {
		// cancel releases the job context from baseCtx's child list; without
		// it every finished job would leak its context until Close.
		o.mu.Lock()
		if cancel, ok := o.cancels[job.ID]; ok {
			cancel()
			delete(o.cancels, job.ID)
		}
		o.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			o.fail(job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.fail(job.ID, "cancelled")
		return
	}
	defer o.sem.Release(1)

	originalPath, finalPath, s3URI, err := o.runPipeline(ctx, job, keyframes, prompt, bucket, settings)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.Canceled) {
			reason = "cancelled"
		}
		o.fail(job.ID, reason)
		return
	}

	o.store.SetJobVideoURL(job.ID, o.cfg.DownloadURLPrefix+job.ID)
	o.store.UpdateJob(job.ID, domain.JobStateCompleted, 100, "Video processing completed!", nil)
	artifact := domain.VideoArtifact{
		VideoID:           job.ID,
		ProductName:       job.ProductName,
		Prompt:            prompt,
		CreatedAt:         job.CreatedAt,
		FinalVideoPath:    finalPath,
		OriginalVideoPath: originalPath,
		StartKeyframe:     keyframes.StartFrame,
		EndKeyframe:       keyframes.EndFrame,
		S3URI:             s3URI,
	}
	if err := o.store.PutVideo(artifact); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: publish artifact failed")
	}
	o.logger.Info().Str("job_id", job.ID).Str("product", job.ProductName).Msg("orchestrator: job completed")
}

func (o *Orchestrator) runPipeline(ctx context.Context, job domain.Job, keyframes domain.KeyframeSet, prompt, bucket string, settings domain.GenerationSettings) (originalPath, finalPath, s3URI string, err error) {
	// Step 1: drive the external generation operation to completion.
	o.store.UpdateJob(job.ID, domain.JobStateGenerating, 10, "Generating video...", nil)
	handle, err := o.generator.Submit(ctx, generation.Request{
		ProductName:    job.ProductName,
		Prompt:         prompt,
		StartFramePath: keyframes.StartFrame,
		EndFramePath:   keyframes.EndFrame,
		OutputBucket:   bucket,
		Settings:       settings,
	})
	if err != nil {
		return "", "", "", fmt.Errorf("start generation: %w", err)
	}

	result, err := generation.AwaitCompletion(ctx, o.generator, handle, o.cfg.PollInterval, func(status generation.Status, elapsed time.Duration) {
		o.logger.Info().
			Str("job_id", job.ID).
			Str("status", string(status)).
			Int("elapsed_seconds", int(elapsed.Seconds())).
			Msg("orchestrator: generation status")
		if !generationTerminal(status) {
			msg := fmt.Sprintf("Generation %s (%ds elapsed)", status, int(elapsed.Seconds()))
			o.store.UpdateJob(job.ID, domain.JobStateGenerating, 10, msg, nil)
		}
	})
	if err != nil {
		return "", "", "", err
	}

	// Step 2: fetch the generated media locally. The artifact name carries a
	// job id prefix so concurrent jobs for one product never collide.
	o.store.UpdateJob(job.ID, domain.JobStateDownloading, 50, "Video generated! Downloading...", nil)
	baseName := fmt.Sprintf("%s_%s", job.ProductName, shortID(job.ID))
	originalPath = filepath.Join(o.cfg.VideosDir, baseName+".mp4")
	if err := o.objects.Fetch(ctx, result.OutputLocation, originalPath); err != nil {
		return "", "", "", err
	}

	// Step 3: apply the boomerang effect.
	o.store.UpdateJob(job.ID, domain.JobStateProcessing, 70, "Applying boomerang effect...", nil)
	finalPath, err = o.processor.ApplyEffect(ctx, originalPath)
	if err != nil {
		return "", "", "", err
	}

	// Step 4: archive the final media.
	o.store.UpdateJob(job.ID, domain.JobStateProcessing, 90, "Uploading final video...", nil)
	remoteURI := fmt.Sprintf("s3://%s/%s/%s", bucket, generation.OutputPrefix(job.ProductName, time.Now()), filepath.Base(finalPath))
	s3URI, err = o.objects.Archive(ctx, finalPath, remoteURI)
	if err != nil {
		return "", "", "", err
	}

	return originalPath, finalPath, s3URI, nil
}

func (o *Orchestrator) fail(jobID, reason string) {
	o.logger.Error().Str("job_id", jobID).Str("reason", reason).Msg("orchestrator: job failed")
	o.store.UpdateJob(jobID, domain.JobStateFailed, 0, "Error: "+reason, &reason)
}

func generationTerminal(status generation.Status) bool {
	return status == generation.StatusCompleted || status == generation.StatusFailed
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
