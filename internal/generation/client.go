// Package generation defines the contract with the external asynchronous
// video-generation service and the monitor that observes its operations.
package generation

import (
	"context"

	"videoforge/internal/domain"
)

// Status is the coarse state reported by the generation service for an
// in-flight operation.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// Request carries everything the service needs to start one generation.
type Request struct {
	ProductName    string
	Prompt         string
	StartFramePath string
	EndFramePath   *string
	OutputBucket   string
	Settings       domain.GenerationSettings
}

// OperationHandle is the opaque reference identifying an in-flight request.
type OperationHandle string

// OperationStatus is the result of a single status query.
type OperationStatus struct {
	Status         Status
	OutputLocation string
	FailureReason  string
}

// Client is the adapter over the generation service. Submit starts an
// asynchronous operation; Poll issues one status query for it.
type Client interface {
	Submit(ctx context.Context, req Request) (OperationHandle, error)
	Poll(ctx context.Context, handle OperationHandle) (OperationStatus, error)
}
