package vision

import "fmt"

// Verdict is the oracle's decision for one image. It is immutable once
// received; a rejected image carries a human-readable reason.
type Verdict struct {
	IsValid    bool   `json:"isValid"`
	Reason     string `json:"reason"`
	Confidence int    `json:"confidence"` // 0–100
}

// Validate checks structural constraints on a parsed verdict.
func (v Verdict) Validate() error {
	if v.Confidence < 0 || v.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range [0, 100]", v.Confidence)
	}
	if !v.IsValid && v.Reason == "" {
		return fmt.Errorf("rejected verdict is missing a reason")
	}
	return nil
}
