package issues

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrIncompleteDraft means a required draft field is missing. Because the
// workflow guards every transition this only fires when a caller bypasses
// the state machine.
var ErrIncompleteDraft = errors.New("draft is incomplete")

// BuildRecord assembles the persisted issue from a finished draft.
func BuildRecord(draft Draft, reporterID string) (*Issue, error) {
	var missing []string
	if reporterID == "" {
		missing = append(missing, "reporter")
	}
	if draft.Category == "" {
		missing = append(missing, "category")
	}
	if draft.Severity == "" {
		missing = append(missing, "severity")
	}
	if draft.Building == "" {
		missing = append(missing, "building")
	}
	if draft.Floor == "" {
		missing = append(missing, "floor")
	}
	if draft.Room == "" {
		missing = append(missing, "room")
	}
	if draft.Verdict == nil || !draft.Verdict.IsValid {
		missing = append(missing, "validation verdict")
	}
	if draft.PhotoURL == "" {
		missing = append(missing, "photo")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", ErrIncompleteDraft, missing)
	}

	return &Issue{
		ID:          uuid.New(),
		ReporterID:  reporterID,
		Category:    draft.Category,
		Subcategory: draft.Subcategory,
		Severity:    draft.Severity,
		Building:    draft.Building,
		Floor:       draft.Floor,
		Room:        draft.Room,
		Description: draft.Description,
		Confidence:  draft.Verdict.Confidence,
		PhotoURLs:   pq.StringArray{draft.PhotoURL},
		Status:      StatusPending,
	}, nil
}
