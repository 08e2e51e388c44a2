package handlers

import "net/http"

// ConfigOptions lists the generation settings the service accepts.
func (a *App) ConfigOptions(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"aspect_ratios": []string{"1:1", "4:3", "3:4", "16:9", "9:16", "21:9"},
		"durations":     []string{"5s", "10s"},
		"resolutions":   []string{"720p", "540p"},
		"regions":       []string{"us-west-2", "us-east-1", "eu-west-1"},
	})
}

// ConfigEnvironment exposes the deploy-time defaults clients need.
func (a *App) ConfigEnvironment(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"s3_bucket_name": a.S3Bucket})
}
