package domain

import (
	"fmt"
	"time"
)

// KeyframeSet maps a product to its stored reference frames. The end frame is
// optional; re-registering a product replaces the whole set.
type KeyframeSet struct {
	ProductName string    `json:"product_name"`
	StartFrame  string    `json:"start_frame"`
	EndFrame    *string   `json:"end_frame,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Validate enforces the required fields of a keyframe set.
func (k *KeyframeSet) Validate() error {
	if k.ProductName == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if k.StartFrame == "" {
		return fmt.Errorf("%w: start frame path is required", ErrValidation)
	}
	return nil
}
