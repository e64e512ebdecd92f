package config

import "time"

// Defaults returns the settings used when nothing is configured.
func Defaults() *Settings {
	return &Settings{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		StopTimeout: 30 * time.Second,
	}
}
