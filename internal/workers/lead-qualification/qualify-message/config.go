// internal/workers/lead-qualification/qualify-message/config.go
package qualifymessage

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 2 * time.Minute,
	}
}
