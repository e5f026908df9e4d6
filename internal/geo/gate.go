package geo

import (
	"context"
	"errors"
	"log"
)

// Common errors
var (
	// ErrLocationUnavailable means no coordinate could be read for the caller.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrServiceUnavailable means the remote geofence lookup failed or timed out.
	// A timeout is never treated as "inside".
	ErrServiceUnavailable = errors.New("geofence service unavailable")
)

// Result is a gate decision. DistanceMeters is set only by strategies that
// can compute a diagnostic distance (the local-radius gate).
type Result struct {
	Inside         bool     `json:"inside"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// Gate decides whether a coordinate counts as inside campus. The decision is
// made server-side; a client-submitted coordinate is input to the check,
// never the check itself.
type Gate interface {
	// Name returns the strategy name for logging purposes.
	Name() string

	// Contains reports whether the coordinate falls inside the campus zone.
	Contains(ctx context.Context, c Coordinate) (Result, error)
}

// RadiusGate tests membership against a fixed center + radius using the
// Haversine distance. The boundary is inclusive: a point exactly
// RadiusMeters from the center is inside.
type RadiusGate struct {
	Fence Fence
}

func (g *RadiusGate) Name() string { return "local" }

func (g *RadiusGate) Contains(ctx context.Context, c Coordinate) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}

	d := DistanceMeters(c, g.Fence.Center)
	return Result{
		Inside:         d <= g.Fence.RadiusMeters,
		DistanceMeters: &d,
	}, nil
}

// FallbackGate tries a primary gate and, on error only, falls back to a
// secondary one. The fallback is an explicit configuration choice and every
// fallback taken is logged; it never happens silently.
type FallbackGate struct {
	Primary   Gate
	Secondary Gate
}

func (g *FallbackGate) Name() string { return g.Primary.Name() + "+fallback" }

func (g *FallbackGate) Contains(ctx context.Context, c Coordinate) (Result, error) {
	res, err := g.Primary.Contains(ctx, c)
	if err == nil {
		return res, nil
	}

	log.Printf("[geofence] %s gate failed (%v), falling back to %s", g.Primary.Name(), err, g.Secondary.Name())
	return g.Secondary.Contains(ctx, c)
}
