package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// remoteTimeout bounds a single zone-lookup call. A lookup that exceeds it
// surfaces ErrServiceUnavailable rather than hanging the submit path.
const remoteTimeout = 10 * time.Second

// RemoteGate delegates the membership test to an external geofence lookup
// service: POST {latitude, longitude} → {insideCampus}. It has no distance
// diagnostic.
type RemoteGate struct {
	url        string
	httpClient *http.Client
}

// NewRemoteGate creates a gate backed by the zone-lookup endpoint at url.
func NewRemoteGate(url string) *RemoteGate {
	return &RemoteGate{
		url: url,
		httpClient: &http.Client{
			Timeout: remoteTimeout,
		},
	}
}

func (g *RemoteGate) Name() string { return "remote" }

type remoteRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type remoteResponse struct {
	InsideCampus bool `json:"insideCampus"`
}

func (g *RemoteGate) Contains(ctx context.Context, c Coordinate) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(remoteRequest{Latitude: c.Latitude, Longitude: c.Longitude})
	if err != nil {
		return Result{}, fmt.Errorf("encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrServiceUnavailable, err)
	}

	return Result{Inside: out.InsideCampus}, nil
}
