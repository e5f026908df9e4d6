package geo

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
)

// StrategyType identifies which geofence strategy to use.
type StrategyType string

const (
	StrategyLocal  StrategyType = "local"
	StrategyRemote StrategyType = "remote"
)

// DefaultRadiusMeters is the campus radius used when CAMPUS_RADIUS_M is unset.
const DefaultRadiusMeters = 1000.0

var (
	ErrMissingCenter    = errors.New("CAMPUS_CENTER_LAT and CAMPUS_CENTER_LNG are required")
	ErrMissingRemoteURL = errors.New("GEOFENCE_URL is required for the remote strategy")
)

// Config holds geofence configuration.
type Config struct {
	// Strategy: "local" or "remote"
	Strategy StrategyType

	// Campus fence for the local strategy (also the fallback target).
	Fence Fence

	// Remote-specific config
	RemoteURL string

	// FallbackLocal allows the remote strategy to fall back to the local
	// fence when the lookup service is unreachable. Off by default:
	// unverifiable location denies submission.
	FallbackLocal bool
}

// LoadFromEnv loads geofence configuration from environment variables.
//
// Environment variables:
//   - GEOFENCE_PROVIDER: "local" or "remote" (default: "local")
//   - CAMPUS_CENTER_LAT, CAMPUS_CENTER_LNG: campus center coordinate
//   - CAMPUS_RADIUS_M: fence radius in meters (default: 1000)
//   - GEOFENCE_URL: zone lookup endpoint (required for remote)
//   - GEOFENCE_FALLBACK_LOCAL: "true" to allow remote→local fallback
func LoadFromEnv() Config {
	strategyStr := strings.ToLower(strings.TrimSpace(os.Getenv("GEOFENCE_PROVIDER")))

	var strategy StrategyType
	switch strategyStr {
	case "remote":
		strategy = StrategyRemote
	default:
		strategy = StrategyLocal
	}

	lat, _ := strconv.ParseFloat(os.Getenv("CAMPUS_CENTER_LAT"), 64)
	lng, _ := strconv.ParseFloat(os.Getenv("CAMPUS_CENTER_LNG"), 64)

	radius := DefaultRadiusMeters
	if v := os.Getenv("CAMPUS_RADIUS_M"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	return Config{
		Strategy: strategy,
		Fence: Fence{
			Center:       Coordinate{Latitude: lat, Longitude: lng},
			RadiusMeters: radius,
		},
		RemoteURL:     strings.TrimSpace(os.Getenv("GEOFENCE_URL")),
		FallbackLocal: strings.EqualFold(os.Getenv("GEOFENCE_FALLBACK_LOCAL"), "true"),
	}
}

// Validate checks that the configuration is valid for the selected strategy.
func (c Config) Validate() error {
	if c.Strategy == StrategyRemote && c.RemoteURL == "" {
		return ErrMissingRemoteURL
	}
	if c.Strategy == StrategyLocal || c.FallbackLocal {
		if c.Fence.Center.Latitude == 0 && c.Fence.Center.Longitude == 0 {
			return ErrMissingCenter
		}
	}
	return nil
}

// NewGate builds the configured gate. The remote strategy gets a local
// fallback only when FallbackLocal is set.
func NewGate(cfg Config) (Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case StrategyRemote:
		remote := NewRemoteGate(cfg.RemoteURL)
		if cfg.FallbackLocal {
			log.Printf("[geofence] remote strategy with local fallback (radius %.0fm)", cfg.Fence.RadiusMeters)
			return &FallbackGate{Primary: remote, Secondary: &RadiusGate{Fence: cfg.Fence}}, nil
		}
		log.Printf("[geofence] remote strategy, no fallback")
		return remote, nil
	default:
		log.Printf("[geofence] local strategy, radius %.0fm", cfg.Fence.RadiusMeters)
		return &RadiusGate{Fence: cfg.Fence}, nil
	}
}
