package generation

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Synthetic is a deterministic in-process generation backend. It stands in for
// the real cloud service in development, CI and tests: operations move from
// Pending through InProgress to Completed on a fixed clock, and the declared
// output location follows the real service's S3 naming scheme. The real HTTP
// client satisfies the same Client interface.
type Synthetic struct {
	// StepDelay is how long each non-terminal phase lasts.
	StepDelay time.Duration

	mu  sync.Mutex
	ops map[OperationHandle]syntheticOp
}

type syntheticOp struct {
	submittedAt time.Time
	output      string
}

// NewSynthetic returns a Synthetic with the given phase duration.
func NewSynthetic(stepDelay time.Duration) *Synthetic {
	return &Synthetic{
		StepDelay: stepDelay,
		ops:       make(map[OperationHandle]syntheticOp),
	}
}

// Submit validates the keyframe files and registers a new operation.
func (s *Synthetic) Submit(ctx context.Context, req Request) (OperationHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := os.Stat(req.StartFramePath); err != nil {
		return "", fmt.Errorf("start frame not found: %s", req.StartFramePath)
	}
	if req.EndFramePath != nil {
		if _, err := os.Stat(*req.EndFramePath); err != nil {
			return "", fmt.Errorf("end frame not found: %s", *req.EndFramePath)
		}
	}

	handle := OperationHandle("op-" + uuid.NewString())
	output := fmt.Sprintf("s3://%s/%s/output.mp4", req.OutputBucket, OutputPrefix(req.ProductName, time.Now()))

	s.mu.Lock()
	s.ops[handle] = syntheticOp{submittedAt: time.Now(), output: output}
	s.mu.Unlock()

	return handle, nil
}

// Poll reports the phase the operation has reached on the synthetic clock.
func (s *Synthetic) Poll(ctx context.Context, handle OperationHandle) (OperationStatus, error) {
	if err := ctx.Err(); err != nil {
		return OperationStatus{}, err
	}

	s.mu.Lock()
	op, ok := s.ops[handle]
	s.mu.Unlock()
	if !ok {
		return OperationStatus{}, fmt.Errorf("unknown operation %s", handle)
	}

	elapsed := time.Since(op.submittedAt)
	switch {
	case elapsed < s.StepDelay:
		return OperationStatus{Status: StatusPending}, nil
	case elapsed < 2*s.StepDelay:
		return OperationStatus{Status: StatusInProgress}, nil
	default:
		return OperationStatus{Status: StatusCompleted, OutputLocation: op.output}, nil
	}
}

// OutputPrefix derives the remote prefix generated media is written under.
func OutputPrefix(productName string, at time.Time) string {
	return fmt.Sprintf("product-videos/%s/%s", productName, at.Format("20060102_150405"))
}

var _ Client = (*Synthetic)(nil)
