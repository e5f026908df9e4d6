package issues

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Issue statuses, advanced by the maintenance team.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Urgency tiers selected by the reporter.
const (
	UrgencyEmergency      = "emergency"
	UrgencyNeedsAttention = "needs_attention"
	UrgencyCanWait        = "can_wait"
)

// Severity levels driving maintenance prioritization.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Points schedule. These are the only award amounts in the system; award
// sites reference these constants rather than repeating the numbers.
const (
	PointsSubmission = 5  // completed issue submission
	PointsResolution = 50 // maintenance-confirmed resolution
)

// SeverityForUrgency is the canonical urgency → severity mapping:
// emergency → high, needs_attention → medium, can_wait → low.
func SeverityForUrgency(urgency string) (string, error) {
	switch urgency {
	case UrgencyEmergency:
		return SeverityHigh, nil
	case UrgencyNeedsAttention:
		return SeverityMedium, nil
	case UrgencyCanWait:
		return SeverityLow, nil
	default:
		return "", fmt.Errorf("unknown urgency tier: %q", urgency)
	}
}

// Issue is a persisted report.
type Issue struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ReporterID  string    `gorm:"not null;index" json:"reporter_id"`
	Category    string    `gorm:"not null" json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Severity    string    `gorm:"not null" json:"severity"`

	// Location is stored as a structured triple; the display string is
	// rendered only at presentation boundaries.
	Building string `gorm:"not null" json:"building"`
	Floor    string `gorm:"not null" json:"floor"`
	Room     string `gorm:"not null" json:"room"`

	Description string         `json:"description,omitempty"`
	Confidence  int            `json:"confidence"`
	PhotoURLs   pq.StringArray `gorm:"type:text[]" json:"photo_urls"`

	Status             string `gorm:"not null;default:'pending'" json:"status"`
	ResolutionComment  string `json:"resolution_comment,omitempty"`
	ResolutionPhotoURL string `json:"resolution_photo_url,omitempty"`

	// ResolvedAt is set the first time the issue reaches resolved and never
	// cleared, even if the status is later reopened. The resolution points
	// award keys off it so a resolve/reopen/resolve cycle pays out once.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Issue) TableName() string {
	return "issues.issues"
}

// Location is the structured building/floor/room triple.
type Location struct {
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Room     string `json:"room"`
}

// DisplayString renders the location for presentation:
// "<Building>, Floor <Floor>, <Room>". Parts must not contain the ", "
// separator; ParseLocation round-trips the result.
func (l Location) DisplayString() string {
	return fmt.Sprintf("%s, Floor %s, %s", l.Building, l.Floor, l.Room)
}

// ParseLocation splits a display string produced by DisplayString back into
// its three parts.
func ParseLocation(s string) (Location, error) {
	idx := strings.Index(s, ", Floor ")
	if idx < 0 {
		return Location{}, fmt.Errorf("location %q is missing the floor separator", s)
	}
	building := s[:idx]
	rest := s[idx+len(", Floor "):]

	parts := strings.SplitN(rest, ", ", 2)
	if len(parts) != 2 {
		return Location{}, fmt.Errorf("location %q is missing the room separator", s)
	}

	loc := Location{Building: building, Floor: parts[0], Room: parts[1]}
	if loc.Building == "" || loc.Floor == "" || loc.Room == "" {
		return Location{}, fmt.Errorf("location %q has an empty part", s)
	}
	return loc, nil
}
