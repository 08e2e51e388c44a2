// Package media applies local post-processing effects to downloaded videos.
package media

import "context"

// Processor is the adapter over the local post-processing step. ApplyEffect
// consumes the file at inputPath and returns the path of the processed
// output; failures wrap domain.ErrProcessing with the tool's diagnostics.
type Processor interface {
	ApplyEffect(ctx context.Context, inputPath string) (string, error)
}
