package domain

// GenerationSettings carries the tunables forwarded to the generation service.
type GenerationSettings struct {
	AspectRatio string `json:"aspect_ratio"`
	Duration    string `json:"duration"`
	Resolution  string `json:"resolution"`
	Loop        bool   `json:"loop"`
	Region      string `json:"region"`
}

// DefaultGenerationSettings returns the settings applied when a request leaves
// a field empty.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		AspectRatio: "16:9",
		Duration:    "5s",
		Resolution:  "720p",
		Loop:        false,
		Region:      "us-west-2",
	}
}

// ApplyDefaults fills empty fields from the defaults.
func (s GenerationSettings) ApplyDefaults() GenerationSettings {
	def := DefaultGenerationSettings()
	if s.AspectRatio == "" {
		s.AspectRatio = def.AspectRatio
	}
	if s.Duration == "" {
		s.Duration = def.Duration
	}
	if s.Resolution == "" {
		s.Resolution = def.Resolution
	}
	if s.Region == "" {
		s.Region = def.Region
	}
	return s
}
