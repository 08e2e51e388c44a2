package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"videoforge/internal/domain"
	"videoforge/internal/generation"
	"videoforge/internal/infra"
	"videoforge/internal/media"
	"videoforge/internal/orchestrator"
	"videoforge/internal/store"
	"videoforge/internal/transfer"
)

// videoConfig is one entry of the batch config file.
type videoConfig struct {
	ProductName string                    `json:"product_name"`
	Prompt      string                    `json:"prompt"`
	Settings    domain.GenerationSettings `json:"settings"`
}

type batchFile struct {
	KeyframeBased []videoConfig `json:"keyframe_based"`
}

type batchResult struct {
	ProductName string
	JobID       string
	State       domain.JobState
	Detail      string
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "video_configs.json", "path to the batch config file")
	concurrency := flag.Int("concurrency", 2, "how many products to generate at once")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	configs, err := loadConfigs(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("batch: load config failed")
	}
	if len(configs) == 0 {
		logger.Fatal().Str("path", *configPath).Msg("batch: no keyframe_based entries in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseFile(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: open store failed")
	}
	objects, err := transfer.NewFileStore(cfg.DataDir + "/remote")
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: configure object store failed")
	}

	orch := orchestrator.New(
		st,
		generation.NewSynthetic(cfg.PollInterval),
		objects,
		media.NewBoomerang(cfg.FFmpegPath, logger),
		logger,
		orchestrator.Config{
			OutputBucket:  cfg.S3Bucket,
			VideosDir:     cfg.VideosDir(),
			PollInterval:  cfg.PollInterval,
			MaxConcurrent: cfg.MaxConcurrentJobs,
		},
	)
	defer orch.Close()

	logger.Info().Int("products", len(configs)).Msg("batch: starting")

	var mu sync.Mutex
	results := make([]batchResult, 0, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for _, vc := range configs {
		vc := vc // per-iteration copy; module is built with a pre-1.22 toolchain
		g.Go(func() error {
			res := runOne(gctx, orch, st, vc)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	fmt.Println("product | job | state | detail")
	for _, res := range results {
		if res.State != domain.JobStateCompleted {
			failed++
		}
		fmt.Printf("%s | %s | %s | %s\n", res.ProductName, res.JobID, res.State, res.Detail)
	}
	logger.Info().Int("total", len(results)).Int("failed", failed).Msg("batch: done")
	if failed > 0 {
		os.Exit(1)
	}
}

// runOne submits a single product's job and polls its record to a terminal
// state.
func runOne(ctx context.Context, orch *orchestrator.Orchestrator, st *store.Store, vc videoConfig) batchResult {
	jobID, err := orch.StartJob(ctx, vc.ProductName, vc.Prompt, "", vc.Settings)
	if err != nil {
		return batchResult{ProductName: vc.ProductName, State: domain.JobStateFailed, Detail: err.Error()}
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = orch.Cancel(jobID)
			return batchResult{ProductName: vc.ProductName, JobID: jobID, State: domain.JobStateFailed, Detail: "interrupted"}
		case <-ticker.C:
			job, err := st.Job(jobID)
			if err != nil {
				return batchResult{ProductName: vc.ProductName, JobID: jobID, State: domain.JobStateFailed, Detail: err.Error()}
			}
			if job.State.Terminal() {
				detail := job.Message
				if job.Error != nil {
					detail = *job.Error
				}
				return batchResult{ProductName: vc.ProductName, JobID: jobID, State: job.State, Detail: detail}
			}
		}
	}
}

func loadConfigs(path string) ([]videoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf batchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("invalid config json: %w", err)
	}
	for _, vc := range bf.KeyframeBased {
		if vc.ProductName == "" || vc.Prompt == "" {
			return nil, errors.New("every entry needs product_name and prompt")
		}
	}
	return bf.KeyframeBased, nil
}
