package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrTransfer        = errors.New("transfer failed")
	ErrProcessing      = errors.New("processing failed")
	ErrProviderFailure = errors.New("provider failure")
)
