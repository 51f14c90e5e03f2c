// internal/workers/deck/summarize-deck/config.go
package summarizedeck

type Config struct {
	// MaxInputChars truncates very long decks before prompting. Zero sends
	// the whole text.
	MaxInputChars int
}

func LoadConfig() *Config {
	return &Config{
		MaxInputChars: 60000,
	}
}
