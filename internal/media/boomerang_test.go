package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoforge/internal/domain"
)

type capturedCommand struct {
	name string
	args []string
}

func newTestBoomerang(t *testing.T, calls *[]capturedCommand, failAt int) *Boomerang {
	t.Helper()
	b := NewBoomerang("ffmpeg", zerolog.Nop())
	b.run = func(ctx context.Context, name string, args ...string) error {
		*calls = append(*calls, capturedCommand{name: name, args: args})
		if failAt > 0 && len(*calls) == failAt {
			return fmt.Errorf("%w: ffmpeg exited with code 1", domain.ErrProcessing)
		}
		// emulate ffmpeg producing its output file
		out := args[len(args)-1]
		return os.WriteFile(out, []byte("clip"), 0o644)
	}
	return b
}

func TestBoomerang_ApplyEffect_CommandSequence(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "watch_01_abcd1234.mp4")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0o644))

	var calls []capturedCommand
	b := newTestBoomerang(t, &calls, 0)

	final, err := b.ApplyEffect(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "watch_01_abcd1234_final.mp4"), final)

	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Equal(t, "ffmpeg", call.name)
	}

	// step 1: reverse filter
	assert.Contains(t, strings.Join(calls[0].args, " "), "-vf reverse")
	// step 2: concat demuxer with stream copy
	joined := strings.Join(calls[1].args, " ")
	assert.Contains(t, joined, "-f concat")
	assert.Contains(t, joined, "-c copy")
	// step 3: speed-up with audio dropped
	joined = strings.Join(calls[2].args, " ")
	assert.Contains(t, joined, "setpts=0.75*PTS")
	assert.Contains(t, joined, "-an")
}

func TestBoomerang_ApplyEffect_ConcatListReferencesBothClips(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "lamp_02_ffff0000.mp4")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0o644))

	var listContent string
	b := NewBoomerang("ffmpeg", zerolog.Nop())
	b.run = func(ctx context.Context, name string, args ...string) error {
		for _, arg := range args {
			if strings.HasSuffix(arg, "_concat.txt") {
				data, err := os.ReadFile(arg)
				if err != nil {
					return err
				}
				listContent = string(data)
			}
		}
		return os.WriteFile(args[len(args)-1], []byte("clip"), 0o644)
	}

	_, err := b.ApplyEffect(context.Background(), input)
	require.NoError(t, err)
	assert.Contains(t, listContent, "file '"+input+"'")
	assert.Contains(t, listContent, "_reversed.mp4'")
}

func TestBoomerang_ApplyEffect_CleansUpIntermediates(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "watch_01_abcd1234.mp4")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0o644))

	var calls []capturedCommand
	b := newTestBoomerang(t, &calls, 0)
	_, err := b.ApplyEffect(context.Background(), input)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"watch_01_abcd1234.mp4", "watch_01_abcd1234_final.mp4"}, names)
}

func TestBoomerang_ApplyEffect_MissingInput(t *testing.T) {
	b := NewBoomerang("ffmpeg", zerolog.Nop())
	_, err := b.ApplyEffect(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessing)
}

func TestBoomerang_ApplyEffect_StepFailureShortCircuits(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "watch_01_abcd1234.mp4")
	require.NoError(t, os.WriteFile(input, []byte("original"), 0o644))

	var calls []capturedCommand
	b := newTestBoomerang(t, &calls, 2)

	_, err := b.ApplyEffect(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProcessing))
	assert.Len(t, calls, 2)
}
