package vision

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

var ErrMissingURL = errors.New("VISION_URL environment variable is required")

// Config holds image validation oracle configuration.
type Config struct {
	URL      string
	APIKey   string
	FailOpen bool
	RPS      float64
}

// LoadFromEnv loads oracle configuration from environment variables.
//
// Environment variables:
//   - VISION_URL: validation endpoint (required)
//   - VISION_KEY: bearer token (optional)
//   - VISION_FAIL_OPEN: "true" to accept images when the oracle fails
//     (default: fail-closed)
//   - VISION_RPS: requests per second allowed against the oracle (default: 1)
func LoadFromEnv() Config {
	rps := 1.0
	if v := os.Getenv("VISION_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}

	return Config{
		URL:      strings.TrimSpace(os.Getenv("VISION_URL")),
		APIKey:   strings.TrimSpace(os.Getenv("VISION_KEY")),
		FailOpen: strings.EqualFold(os.Getenv("VISION_FAIL_OPEN"), "true"),
		RPS:      rps,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// NewFromConfig builds a client from loaded configuration.
func NewFromConfig(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewClient(cfg.URL, cfg.APIKey, cfg.FailOpen, cfg.RPS), nil
}
