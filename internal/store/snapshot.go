package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"videoforge/internal/domain"
)

// document is the on-disk shape of the snapshot: all three collections plus a
// last-updated marker, fully rewritten on every mutation.
type document struct {
	Jobs        map[string]*domain.Job           `json:"jobs"`
	Keyframes   map[string]*domain.KeyframeSet   `json:"keyframes"`
	Videos      map[string]*domain.VideoArtifact `json:"videos"`
	LastUpdated time.Time                        `json:"last_updated"`
}

func (s *Store) hydrate() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info().Str("path", s.path).Msg("store: no existing snapshot, starting fresh")
			return nil
		}
		return fmt.Errorf("store: read snapshot: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("store: snapshot unreadable, starting fresh")
		return nil
	}

	if doc.Jobs != nil {
		s.jobs = doc.Jobs
	}
	if doc.Keyframes != nil {
		s.keyframes = doc.Keyframes
	}
	if doc.Videos != nil {
		s.videos = doc.Videos
	}
	s.logger.Info().
		Int("jobs", len(s.jobs)).
		Int("keyframes", len(s.keyframes)).
		Int("videos", len(s.videos)).
		Msg("store: snapshot loaded")
	return nil
}

// persist serializes the full document and writes it atomically
// (write-temp-then-rename), so a crash mid-write never leaves a partial
// snapshot behind. persistMu is taken before the collections are captured:
// capture order must equal write order, or a slow writer could rename an
// older capture over a newer one and roll back state already on disk. Write
// failures are logged, not raised: the in-memory state stays authoritative
// for the life of the process.
func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	doc := document{
		Jobs:        cloneMap(s.jobs),
		Keyframes:   cloneMap(s.keyframes),
		Videos:      cloneMap(s.videos),
		LastUpdated: time.Now(),
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Msg("store: marshal snapshot failed")
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error().Err(err).Msg("store: ensure snapshot directory failed")
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".database-*.json")
	if err != nil {
		s.logger.Error().Err(err).Msg("store: create snapshot temp file failed")
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.logger.Error().Err(err).Msg("store: write snapshot failed")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.logger.Error().Err(err).Msg("store: close snapshot temp file failed")
		return
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		s.logger.Error().Err(err).Msg("store: rename snapshot failed")
	}
}

func cloneMap[V any](in map[string]*V) map[string]*V {
	out := make(map[string]*V, len(in))
	for k, v := range in {
		tmp := *v
		out[k] = &tmp
	}
	return out
}
