// internal/workers/deck/extract-deck-text/config.go
package extractdecktext

type Config struct {
	// MaxPages caps how many pages are read. Zero reads every page.
	MaxPages int
}

func LoadConfig() *Config {
	return &Config{
		MaxPages: 0,
	}
}
