// internal/workers/lead-qualification/notify-hot-lead/config.go
package notifyhotlead

import "time"

type Config struct {
	EmailEnabled bool
	SNSEnabled   bool
	Recipients   []string
	CalendlyLink string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
