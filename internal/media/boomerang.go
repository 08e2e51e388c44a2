package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"videoforge/internal/domain"
	"videoforge/internal/infra"
)

// runner executes one external command; split out so tests can capture the
// argument lists without ffmpeg installed.
type runner func(ctx context.Context, name string, args ...string) error

// Boomerang turns a clip into a forward+reverse loop and speeds it up:
// reverse the input, concatenate original and reversed, then apply a 0.75 PTS
// speed-up with audio dropped. Intermediates are removed on the way out.
type Boomerang struct {
	ffmpegPath string
	logger     infra.Logger
	run        runner
}

// NewBoomerang builds the processor around the given ffmpeg binary.
func NewBoomerang(ffmpegPath string, logger infra.Logger) *Boomerang {
	b := &Boomerang{ffmpegPath: ffmpegPath, logger: logger}
	b.run = b.execCommand
	return b
}

// ApplyEffect processes inputPath and returns the path of the final video,
// named <input>_final.mp4 next to the input.
func (b *Boomerang) ApplyEffect(ctx context.Context, inputPath string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("%w: input not found: %s", domain.ErrProcessing, inputPath)
	}

	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	reversedPath := base + "_reversed.mp4"
	combinedPath := base + "_combined.mp4"
	finalPath := base + "_final.mp4"
	listPath := base + "_concat.txt"

	defer func() {
		os.Remove(reversedPath)
		os.Remove(combinedPath)
		os.Remove(listPath)
	}()

	b.logger.Debug().Str("input", inputPath).Msg("media: reversing clip")
	if err := b.run(ctx, b.ffmpegPath, reverseArgs(inputPath, reversedPath)...); err != nil {
		return "", err
	}

	list := fmt.Sprintf("file '%s'\nfile '%s'\n", inputPath, reversedPath)
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return "", fmt.Errorf("%w: write concat list: %v", domain.ErrProcessing, err)
	}

	b.logger.Debug().Str("input", inputPath).Msg("media: concatenating clips")
	if err := b.run(ctx, b.ffmpegPath, concatArgs(listPath, combinedPath)...); err != nil {
		return "", err
	}

	b.logger.Debug().Str("input", inputPath).Msg("media: applying speed adjustment")
	if err := b.run(ctx, b.ffmpegPath, speedArgs(combinedPath, finalPath)...); err != nil {
		return "", err
	}

	return finalPath, nil
}

func reverseArgs(input, output string) []string {
	return []string{"-y", "-i", input, "-vf", "reverse", output}
}

func concatArgs(list, output string) []string {
	return []string{"-y", "-f", "concat", "-safe", "0", "-i", list, "-c", "copy", output}
}

func speedArgs(input, output string) []string {
	return []string{"-y", "-i", input, "-vf", "setpts=0.75*PTS", "-an", output}
}

func (b *Boomerang) execCommand(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return fmt.Errorf("%w: %s %s: %s", domain.ErrProcessing, name, strings.Join(args, " "), diag)
	}
	return nil
}

var _ Processor = (*Boomerang)(nil)
