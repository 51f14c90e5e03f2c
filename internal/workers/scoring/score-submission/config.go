// internal/workers/scoring/score-submission/config.go
package scoresubmission

import "pitch-scorer/internal/models"

type Config struct {
	PassThreshold int
	// StrictPass treats a pass flag that disagrees with the threshold as a
	// schema violation instead of silently correcting it.
	StrictPass bool
}

func LoadConfig() *Config {
	return &Config{
		PassThreshold: models.DefaultPassThreshold,
		StrictPass:    false,
	}
}
