package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"videoforge/internal/domain"
	"videoforge/internal/infra"
)

// Store owns the three record collections (jobs, keyframe sets, video
// artifacts) and snapshots all of them to a single JSON document on every
// mutation. The snapshot is the only durable log; a crash between mutations
// leaves the last written document as the authoritative state.
type Store struct {
	path   string
	logger infra.Logger

	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	keyframes map[string]*domain.KeyframeSet
	videos    map[string]*domain.VideoArtifact

	// persistMu serializes snapshot capture and write as one unit so
	// concurrent mutations can never land an older capture after a newer one.
	persistMu sync.Mutex
}

// Open loads the snapshot at path if one exists and returns a ready Store.
// A missing file starts fresh; an unreadable one is logged and discarded, the
// way the service has always recovered from a corrupt database file.
func Open(path string, logger infra.Logger) (*Store, error) {
	s := &Store{
		path:      path,
		logger:    logger,
		jobs:      make(map[string]*domain.Job),
		keyframes: make(map[string]*domain.KeyframeSet),
		videos:    make(map[string]*domain.VideoArtifact),
	}
	if err := s.hydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateJob allocates a fresh job in state pending and persists immediately.
func (s *Store) CreateJob(productName string) (domain.Job, error) {
	now := time.Now()
	job := &domain.Job{
		ID:          uuid.NewString(),
		ProductName: productName,
		State:       domain.JobStatePending,
		Progress:    0,
		Message:     "Job created",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := job.Validate(); err != nil {
		return domain.Job{}, err
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	s.persist()
	return snapshot, nil
}

// Job returns the job with the given id.
func (s *Store) Job(id string) (domain.Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.RUnlock()
		return domain.Job{}, fmt.Errorf("%w: job %q", domain.ErrNotFound, id)
	}
	snapshot := *job
	s.mu.RUnlock()
	return snapshot, nil
}

// UpdateJob applies an atomic read-modify-write to one job record and persists
// the snapshot. Unknown ids and invalid transitions are logged and dropped
// rather than raised: the only caller is the orchestrator acting on its own
// job, so a miss here is a defensive no-op.
func (s *Store) UpdateJob(id string, state domain.JobState, progress int, message string, errText *string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn().Str("job_id", id).Msg("store: update for unknown job")
		return
	}
	if !job.State.CanTransition(state) {
		s.mu.Unlock()
		s.logger.Warn().
			Str("job_id", id).
			Str("from", string(job.State)).
			Str("to", string(state)).
			Msg("store: rejected job state transition")
		return
	}
	job.State = state
	job.Progress = progress
	job.Message = message
	job.UpdatedAt = time.Now()
	if errText != nil {
		job.Error = errText
	}
	s.mu.Unlock()

	s.persist()
}

// SetJobVideoURL records the retrieval reference on a completed job's record.
func (s *Store) SetJobVideoURL(id, url string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn().Str("job_id", id).Msg("store: video url for unknown job")
		return
	}
	job.VideoURL = &url
	job.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist()
}

// Jobs lists all job records, newest first.
func (s *Store) Jobs() []domain.Job {
	s.mu.RLock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// RegisterKeyframes stores a keyframe set for a product, replacing any
// existing entry wholesale.
func (s *Store) RegisterKeyframes(set domain.KeyframeSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	if set.UploadedAt.IsZero() {
		set.UploadedAt = time.Now()
	}

	s.mu.Lock()
	s.keyframes[set.ProductName] = &set
	s.mu.Unlock()

	s.persist()
	return nil
}

// Keyframes resolves a product to its keyframe set. The not-found error names
// the currently known products so callers can self-diagnose typos.
func (s *Store) Keyframes(productName string) (domain.KeyframeSet, error) {
	s.mu.RLock()
	set, ok := s.keyframes[productName]
	if !ok {
		names := make([]string, 0, len(s.keyframes))
		for name := range s.keyframes {
			names = append(names, name)
		}
		s.mu.RUnlock()
		sort.Strings(names)
		known := "none"
		if len(names) > 0 {
			known = strings.Join(names, ", ")
		}
		return domain.KeyframeSet{}, fmt.Errorf(
			"%w: no keyframes for product %q (available products: %s)",
			domain.ErrNotFound, productName, known)
	}
	snapshot := *set
	s.mu.RUnlock()
	return snapshot, nil
}

// KeyframeSets lists every registered keyframe set.
func (s *Store) KeyframeSets() []domain.KeyframeSet {
	s.mu.RLock()
	out := make([]domain.KeyframeSet, 0, len(s.keyframes))
	for _, set := range s.keyframes {
		out = append(out, *set)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out
}

// PutVideo publishes the artifact record for a completed job.
func (s *Store) PutVideo(artifact domain.VideoArtifact) error {
	if artifact.VideoID == "" {
		return fmt.Errorf("%w: video id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	s.videos[artifact.VideoID] = &artifact
	s.mu.Unlock()

	s.persist()
	return nil
}

// Video returns the artifact with the given id.
func (s *Store) Video(id string) (domain.VideoArtifact, error) {
	s.mu.RLock()
	artifact, ok := s.videos[id]
	if !ok {
		s.mu.RUnlock()
		return domain.VideoArtifact{}, fmt.Errorf("%w: video %q", domain.ErrNotFound, id)
	}
	snapshot := *artifact
	s.mu.RUnlock()
	return snapshot, nil
}

// Videos lists all artifact records, newest first.
func (s *Store) Videos() []domain.VideoArtifact {
	s.mu.RLock()
	out := make([]domain.VideoArtifact, 0, len(s.videos))
	for _, artifact := range s.videos {
		out = append(out, *artifact)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// DeleteVideo removes the artifact record and returns it so the caller can
// remove the backing files. The originating job record is left untouched.
func (s *Store) DeleteVideo(id string) (domain.VideoArtifact, error) {
	s.mu.Lock()
	artifact, ok := s.videos[id]
	if !ok {
		s.mu.Unlock()
		return domain.VideoArtifact{}, fmt.Errorf("%w: video %q", domain.ErrNotFound, id)
	}
	snapshot := *artifact
	delete(s.videos, id)
	s.mu.Unlock()

	s.persist()
	return snapshot, nil
}
