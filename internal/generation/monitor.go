package generation

import (
	"context"
	"fmt"
	"time"

	"videoforge/internal/domain"
)

// StatusChange is invoked by AwaitCompletion whenever the observed status
// differs from the last one reported.
type StatusChange func(status Status, elapsed time.Duration)

// TerminalResult describes how an operation ended.
type TerminalResult struct {
	Status         Status
	OutputLocation string
	FailureReason  string
	Elapsed        time.Duration
}

// AwaitCompletion polls an operation until it reaches a terminal status.
// Duplicate status observations are suppressed; any status other than
// Completed or Failed keeps the loop going. There is no overall timeout:
// generation legitimately runs for many minutes, so the only way out of a
// stuck operation is cancelling ctx.
func AwaitCompletion(ctx context.Context, client Client, handle OperationHandle, interval time.Duration, onChange StatusChange) (TerminalResult, error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	start := time.Now()
	var last Status

	for {
		status, err := client.Poll(ctx, handle)
		if err != nil {
			return TerminalResult{}, fmt.Errorf("poll operation %s: %w", handle, err)
		}

		elapsed := time.Since(start)
		if status.Status != last {
			last = status.Status
			if onChange != nil {
				onChange(status.Status, elapsed)
			}
		}

		switch status.Status {
		case StatusCompleted:
			return TerminalResult{
				Status:         StatusCompleted,
				OutputLocation: status.OutputLocation,
				Elapsed:        elapsed,
			}, nil
		case StatusFailed:
			reason := status.FailureReason
			if reason == "" {
				reason = "unknown error"
			}
			return TerminalResult{
				Status:        StatusFailed,
				FailureReason: reason,
				Elapsed:       elapsed,
			}, fmt.Errorf("%w: %s", domain.ErrProviderFailure, reason)
		}

		select {
		case <-ctx.Done():
			return TerminalResult{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}
