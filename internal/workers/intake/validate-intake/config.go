// internal/workers/intake/validate-intake/config.go
package validateintake

type Config struct {
	// RejectUnknownFields turns unexpected keys into violations. When false
	// they are dropped and logged.
	RejectUnknownFields bool
}

func LoadConfig() *Config {
	return &Config{
		RejectUnknownFields: false,
	}
}
