// internal/workers/lead-qualification/sync-crm-lead/config.go
package synccrmlead

import "time"

type Config struct {
	Enabled    bool
	LeadSource string
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Enabled:    true,
		LeadSource: "Website Chat",
		Timeout:    30 * time.Second,
	}
}
