package issues

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/CampusCare/CC-Backend/internal/geo"
	"github.com/CampusCare/CC-Backend/internal/vision"
	"github.com/google/uuid"
)

// StateKind enumerates the workflow states. Transitions are forward-only and
// guarded; there is no way to construct an intermediate state without
// passing the checkpoints before it.
type StateKind int

const (
	StateAwaitingImageAndCategory StateKind = iota
	StateValidating
	StateRejected
	StateAwaitingLocation
	StateAwaitingUrgency
	StateAwaitingConfirmation
	StateSubmitting
	StateCompleted
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateAwaitingImageAndCategory:
		return "awaiting_image_and_category"
	case StateValidating:
		return "validating"
	case StateRejected:
		return "rejected"
	case StateAwaitingLocation:
		return "awaiting_location"
	case StateAwaitingUrgency:
		return "awaiting_urgency"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the tagged workflow state: the kind plus the data that only
// exists in that state.
type State struct {
	Kind    StateKind  `json:"kind"`
	Reason  string     `json:"reason,omitempty"`   // Rejected
	IssueID *uuid.UUID `json:"issue_id,omitempty"` // Completed
	Err     string     `json:"error,omitempty"`    // Failed
}

// Workflow errors surfaced to handlers.
var (
	ErrInvalidTransition = errors.New("action not allowed in current workflow state")
	ErrOutsideGeofence   = errors.New("coordinate is outside the campus geofence")
	ErrPersistence       = errors.New("failed to persist issue")
)

// Store is the persistence collaborator for issues, points and role
// lookups. The workflow uses the write side; the read methods serve the
// listing and maintenance handlers.
type Store interface {
	CreateIssue(ctx context.Context, issue *Issue) error
	GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error)
	ListIssues(ctx context.Context, reporterID, status string) ([]Issue, error)
	UpdateIssueStatus(ctx context.Context, id uuid.UUID, status, comment, resolutionPhotoURL string) error
	IncrementPoints(ctx context.Context, userID string, delta int) error
	UserRole(ctx context.Context, userID string) (string, error)
}

// BlobStore stores binary payloads and returns a public URL.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

// Notifier dispatches a fire-and-forget summary of a new issue. Failures
// are logged by the workflow and never fail a submission.
type Notifier interface {
	Notify(ctx context.Context, summary IssueSummary) error
}

// Draft is the mutable accumulator for one in-progress report. Fields fill
// in monotonically as the workflow advances; only Reset rolls them back.
type Draft struct {
	Image       []byte  `json:"-"`
	ImageName   string  `json:"image_name,omitempty"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
	Description string  `json:"description,omitempty"`
	Building    string  `json:"building,omitempty"`
	Floor       string  `json:"floor,omitempty"`
	Room        string  `json:"room,omitempty"`
	Urgency     string  `json:"urgency,omitempty"`
	Severity    string  `json:"severity,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty"`

	Verdict            *vision.Verdict `json:"verdict,omitempty"`
	CoordinateAtSubmit *geo.Coordinate `json:"coordinate_at_submit,omitempty"`
}

// Workflow owns one draft and drives it through the submission steps. It is
// single-writer: one workflow per user session, guarded by its own mutex so
// a double-clicked submit can't interleave transitions.
type Workflow struct {
	mu     sync.Mutex
	userID string
	state  State
	draft  Draft

	validator vision.Validator
	gate      geo.Gate
	store     Store
	blobs     BlobStore
	notifier  Notifier
	catalog   *Catalog
}

// NewWorkflow creates a workflow in AwaitingImageAndCategory for one user.
func NewWorkflow(userID string, validator vision.Validator, gate geo.Gate, store Store, blobs BlobStore, notifier Notifier, catalog *Catalog) *Workflow {
	return &Workflow{
		userID:    userID,
		state:     State{Kind: StateAwaitingImageAndCategory},
		validator: validator,
		gate:      gate,
		store:     store,
		blobs:     blobs,
		notifier:  notifier,
		catalog:   catalog,
	}
}

// State returns the current workflow state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// DraftView returns a copy of the draft for display. The image bytes are
// not included.
func (w *Workflow) DraftView() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.draft
	d.Image = nil
	return d
}

// Begin supplies the image and category and runs image validation. On a
// valid verdict the workflow advances to AwaitingLocation; an invalid
// verdict moves it to Rejected; an unreachable oracle returns the workflow
// to AwaitingImageAndCategory with the error surfaced to the caller.
func (w *Workflow) Begin(ctx context.Context, image []byte, imageName, category, subcategory, description string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Kind != StateAwaitingImageAndCategory {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, w.state.Kind)
	}
	if len(image) == 0 {
		return fmt.Errorf("image is required")
	}
	if err := w.catalog.ValidateSelection(category, subcategory); err != nil {
		return err
	}

	w.draft.Image = image
	w.draft.ImageName = imageName
	w.draft.Category = category
	w.draft.Subcategory = subcategory
	w.draft.Description = description
	w.state = State{Kind: StateValidating}

	verdict, err := w.validator.Validate(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		// Oracle unreachable: draft image/category stay filled so the user
		// can retry without re-entering, but the step is not passed.
		w.state = State{Kind: StateAwaitingImageAndCategory}
		return err
	}

	w.draft.Verdict = &verdict
	if !verdict.IsValid {
		w.state = State{Kind: StateRejected, Reason: verdict.Reason}
		return nil
	}

	w.state = State{Kind: StateAwaitingLocation}
	return nil
}

// SetLocation records the building/floor/room triple. All three parts are
// required.
func (w *Workflow) SetLocation(building, floor, room string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Kind != StateAwaitingLocation {
		return fmt.Errorf("%w: set location from %s", ErrInvalidTransition, w.state.Kind)
	}
	if building == "" || floor == "" || room == "" {
		return fmt.Errorf("building, floor and room are all required")
	}

	w.draft.Building = building
	w.draft.Floor = floor
	w.draft.Room = room
	w.state = State{Kind: StateAwaitingUrgency}
	return nil
}

// SetUrgency records the urgency tier and derives the severity.
func (w *Workflow) SetUrgency(urgency string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Kind != StateAwaitingUrgency {
		return fmt.Errorf("%w: set urgency from %s", ErrInvalidTransition, w.state.Kind)
	}

	severity, err := SeverityForUrgency(urgency)
	if err != nil {
		return err
	}

	w.draft.Urgency = urgency
	w.draft.Severity = severity
	w.state = State{Kind: StateAwaitingConfirmation}
	return nil
}

// Submit is the confirmation trigger: it moves the workflow through
// Submitting and, if the geofence gate and persistence both succeed, to
// Completed. An outside-geofence coordinate returns the workflow to
// AwaitingConfirmation with no state loss. A persistence failure moves it
// to Failed with the draft preserved; calling Submit again from Failed
// retries only the persistence step.
func (w *Workflow) Submit(ctx context.Context, coord geo.Coordinate) (uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	retry := w.state.Kind == StateFailed
	if w.state.Kind != StateAwaitingConfirmation && !retry {
		return uuid.Nil, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, w.state.Kind)
	}

	w.state = State{Kind: StateSubmitting}

	// The geofence decision is made server-side at submit time. A retry
	// after a persistence failure reuses the already-accepted coordinate
	// and does not re-run validation or the gate.
	if w.draft.CoordinateAtSubmit == nil {
		res, err := w.gate.Contains(ctx, coord)
		if err != nil {
			w.state = State{Kind: StateAwaitingConfirmation}
			return uuid.Nil, err
		}
		if !res.Inside {
			w.state = State{Kind: StateAwaitingConfirmation}
			if res.DistanceMeters != nil {
				return uuid.Nil, fmt.Errorf("%w: %.0fm from campus center", ErrOutsideGeofence, *res.DistanceMeters)
			}
			return uuid.Nil, ErrOutsideGeofence
		}
		w.draft.CoordinateAtSubmit = &coord
	}

	issueID, err := w.persist(ctx)
	if err != nil {
		w.state = State{Kind: StateFailed, Err: err.Error()}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	w.state = State{Kind: StateCompleted, IssueID: &issueID}
	return issueID, nil
}

// persist runs the side effects of a successful submission: photo upload,
// record creation, points award and notification. Only the first two can
// fail the submission.
func (w *Workflow) persist(ctx context.Context) (uuid.UUID, error) {
	if w.draft.PhotoURL == "" {
		name := w.draft.ImageName
		if name == "" {
			name = "photo.jpg"
		}
		path := fmt.Sprintf("issues/%s/%s%s", w.userID, uuid.NewString(), filepath.Ext(name))
		url, err := w.blobs.Upload(ctx, path, w.draft.Image)
		if err != nil {
			return uuid.Nil, fmt.Errorf("upload photo: %w", err)
		}
		w.draft.PhotoURL = url
	}

	record, err := BuildRecord(w.draft, w.userID)
	if err != nil {
		return uuid.Nil, err
	}

	if err := w.store.CreateIssue(ctx, record); err != nil {
		return uuid.Nil, fmt.Errorf("create issue: %w", err)
	}

	if err := w.store.IncrementPoints(ctx, w.userID, PointsSubmission); err != nil {
		// The record is already persisted; a lost points increment is
		// logged, not rolled back.
		log.Printf("[issues] points award failed for user %s: %v", w.userID, err)
	}

	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, SummaryForIssue(record)); err != nil {
			log.Printf("[issues] notification failed for issue %s: %v", record.ID, err)
		}
	}

	return record.ID, nil
}

// Reset clears the draft and returns to AwaitingImageAndCategory. It is the
// explicit restart and also the acknowledgement path out of Rejected. It is
// idempotent.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft = Draft{}
	w.state = State{Kind: StateAwaitingImageAndCategory}
}
