package domain

import "time"

// VideoArtifact records a successfully generated and post-processed output.
// Its identity equals the job id that produced it; lifecycle is independent of
// the job record (deleting the artifact never rewrites job history).
type VideoArtifact struct {
	VideoID           string    `json:"video_id"`
	ProductName       string    `json:"product_name"`
	Prompt            string    `json:"prompt"`
	CreatedAt         time.Time `json:"created_at"`
	FinalVideoPath    string    `json:"final_video_path"`
	OriginalVideoPath string    `json:"original_video_path"`
	StartKeyframe     string    `json:"start_keyframe"`
	EndKeyframe       *string   `json:"end_keyframe,omitempty"`
	S3URI             string    `json:"s3_uri"`
}
