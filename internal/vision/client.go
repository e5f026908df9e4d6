package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// requestTimeout bounds a single validation call.
const requestTimeout = 15 * time.Second

// maxLoggedBody caps how much of a raw oracle response is written to the
// audit log.
const maxLoggedBody = 512

// ErrServiceUnavailable means the oracle could not be reached or its
// response could not be understood.
var ErrServiceUnavailable = errors.New("image validation service unavailable")

// Validator is the image-content oracle consumed by the submission workflow.
// The classifier behind it is opaque; only the verdict contract matters.
type Validator interface {
	Validate(ctx context.Context, imageBase64 string) (Verdict, error)
}

// Client is an HTTP client for the image validation service.
type Client struct {
	url        string
	apiKey     string
	failOpen   bool
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewClient creates a validation client. When failOpen is set, an
// unreachable or unparseable oracle yields an accepting fallback verdict
// instead of an error; otherwise failures are surfaced to the caller.
func NewClient(url, apiKey string, failOpen bool, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		url:      url,
		apiKey:   apiKey,
		failOpen: failOpen,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type validationRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// Validate submits an image payload and returns the oracle's verdict.
func (c *Client) Validate(ctx context.Context, imageBase64 string) (Verdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Verdict{}, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(validationRequest{ImageBase64: imageBase64})
	if err != nil {
		return Verdict{}, fmt.Errorf("encode validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[vision] request error: %v", err)
		return c.fallback(fmt.Errorf("%w: %v", ErrServiceUnavailable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fallback(fmt.Errorf("%w: read response: %v", ErrServiceUnavailable, err))
	}

	// Raw responses are logged for audit; the oracle is non-deterministic
	// and rejected images get disputed.
	log.Printf("[vision] response status=%d duration=%dms body=%s",
		resp.StatusCode, time.Since(start).Milliseconds(), truncate(string(raw), maxLoggedBody))

	if resp.StatusCode != http.StatusOK {
		return c.fallback(fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode))
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		return c.fallback(fmt.Errorf("%w: %v", ErrServiceUnavailable, err))
	}

	return verdict, nil
}

// fallback applies the configured failure policy: fail-open substitutes an
// accepting verdict (logged), fail-closed propagates the error.
func (c *Client) fallback(err error) (Verdict, error) {
	if c.failOpen {
		log.Printf("[vision] fail-open: accepting image without verdict (%v)", err)
		return Verdict{
			IsValid:    true,
			Reason:     "validator unavailable, accepted by policy",
			Confidence: 0,
		}, nil
	}
	return Verdict{}, err
}

// ParseVerdict decodes an oracle response, tolerating prose wrapped around
// the JSON object: the first well-formed JSON object found in the payload
// is used.
func ParseVerdict(raw []byte) (Verdict, error) {
	obj, ok := firstJSONObject(raw)
	if !ok {
		return Verdict{}, fmt.Errorf("no JSON object in oracle response")
	}

	var v Verdict
	if err := json.Unmarshal(obj, &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if err := v.Validate(); err != nil {
		return Verdict{}, fmt.Errorf("malformed verdict: %w", err)
	}
	return v, nil
}

// firstJSONObject extracts the first balanced {...} span that unmarshals as
// a JSON object. Brace depth is tracked outside string literals so braces
// inside reason text don't break extraction.
func firstJSONObject(raw []byte) ([]byte, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' {
			continue
		}

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(raw); i++ {
			ch := raw[i]
			if escaped {
				escaped = false
				continue
			}
			switch {
			case ch == '\\' && inString:
				escaped = true
			case ch == '"':
				inString = !inString
			case inString:
			case ch == '{':
				depth++
			case ch == '}':
				depth--
				if depth == 0 {
					candidate := raw[start : i+1]
					if json.Valid(candidate) {
						return candidate, true
					}
					i = len(raw) // malformed span, try the next '{'
				}
			}
		}
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
