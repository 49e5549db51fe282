package server

import "time"

// Config holds the debug HTTP surface's configuration settings. The module's
// real boundary is storage.Config; this server only exposes health and
// metrics for operators.
type Config struct {
	Host string // Server host address
	Port int    // Server port

	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout
	IdleTimeout  time.Duration // HTTP idle timeout

	EnableLogging bool // Enable request logging middleware
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          8080,
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		IdleTimeout:   30 * time.Second,
		EnableLogging: true,
	}
}
