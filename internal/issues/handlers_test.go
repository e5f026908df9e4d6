package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CampusCare/CC-Backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	issues map[uuid.UUID]*Issue
	roles  map[string]string
	points map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		issues: make(map[uuid.UUID]*Issue),
		roles:  make(map[string]string),
		points: make(map[string]int),
	}
}

func (s *fakeStore) CreateIssue(ctx context.Context, issue *Issue) error {
	s.issues[issue.ID] = issue
	return nil
}

// GetIssue returns a copy, like a fresh database read.
func (s *fakeStore) GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error) {
	issue, ok := s.issues[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *issue
	return &copied, nil
}

func (s *fakeStore) ListIssues(ctx context.Context, reporterID, status string) ([]Issue, error) {
	var list []Issue
	for _, issue := range s.issues {
		if reporterID != "" && issue.ReporterID != reporterID {
			continue
		}
		if status != "" && issue.Status != status {
			continue
		}
		list = append(list, *issue)
	}
	return list, nil
}

func (s *fakeStore) UpdateIssueStatus(ctx context.Context, id uuid.UUID, status, comment, resolutionPhotoURL string) error {
	issue, ok := s.issues[id]
	if !ok {
		return errors.New("record not found")
	}
	issue.Status = status
	if comment != "" {
		issue.ResolutionComment = comment
	}
	if resolutionPhotoURL != "" {
		issue.ResolutionPhotoURL = resolutionPhotoURL
	}
	if status == StatusResolved && issue.ResolvedAt == nil {
		now := time.Now()
		issue.ResolvedAt = &now
	}
	return nil
}

func (s *fakeStore) IncrementPoints(ctx context.Context, userID string, delta int) error {
	s.points[userID] += delta
	return nil
}

func (s *fakeStore) UserRole(ctx context.Context, userID string) (string, error) {
	role, ok := s.roles[userID]
	if !ok {
		return "", errors.New("record not found")
	}
	return role, nil
}

func useStore(t *testing.T, fs *fakeStore) {
	t.Helper()
	prev := store
	store = fs
	t.Cleanup(func() { store = prev })
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), utils.ContextUserIDKey, userID))
}

func seedIssue(fs *fakeStore, reporterID, status string) *Issue {
	issue := &Issue{
		ID:         uuid.New(),
		ReporterID: reporterID,
		Category:   "water",
		Severity:   SeverityMedium,
		Building:   "Tech Park",
		Floor:      "2nd Floor",
		Room:       "Room 204",
		Status:     status,
	}
	fs.issues[issue.ID] = issue
	return issue
}

func TestListIssuesHandler_StudentSeesOwnOnly(t *testing.T) {
	fs := newFakeStore()
	fs.roles["student-1"] = "student"
	seedIssue(fs, "student-1", StatusPending)
	seedIssue(fs, "student-2", StatusPending)
	useStore(t, fs)

	rec := httptest.NewRecorder()
	ListIssuesHandler(rec, withUser(httptest.NewRequest(http.MethodGet, "/issues", nil), "student-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []Issue
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(list))
	}
	if list[0].ReporterID != "student-1" {
		t.Errorf("listed someone else's issue: %s", list[0].ReporterID)
	}
}

func TestListIssuesHandler_MaintenanceSeesAll(t *testing.T) {
	fs := newFakeStore()
	fs.roles["staff-1"] = "maintenance"
	seedIssue(fs, "student-1", StatusPending)
	seedIssue(fs, "student-2", StatusResolved)
	useStore(t, fs)

	rec := httptest.NewRecorder()
	ListIssuesHandler(rec, withUser(httptest.NewRequest(http.MethodGet, "/issues", nil), "staff-1"))

	var list []Issue
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(list))
	}

	// The status filter narrows the maintenance view.
	rec = httptest.NewRecorder()
	ListIssuesHandler(rec, withUser(httptest.NewRequest(http.MethodGet, "/issues?status=resolved", nil), "staff-1"))
	list = nil
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].Status != StatusResolved {
		t.Errorf("expected only the resolved issue, got %+v", list)
	}
}

func statusForm(t *testing.T, status, comment string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("status", status); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if comment != "" {
		if err := mw.WriteField("comment", comment); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func patchStatus(t *testing.T, id uuid.UUID, status, comment string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Patch("/{id}/status", UpdateStatusHandler)

	body, contentType := statusForm(t, status, comment)
	req := httptest.NewRequest(http.MethodPatch, "/"+id.String()+"/status", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUpdateStatusHandler_ResolutionAwardsOnce(t *testing.T) {
	fs := newFakeStore()
	issue := seedIssue(fs, "student-1", StatusPending)
	useStore(t, fs)

	rec := patchStatus(t, issue.ID, StatusResolved, "fixed the leak")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fs.points["student-1"] != PointsResolution {
		t.Fatalf("expected %d points on first resolution, got %d", PointsResolution, fs.points["student-1"])
	}
	if fs.issues[issue.ID].ResolvedAt == nil {
		t.Fatal("resolution must record when the issue was first resolved")
	}

	// Reopen, then resolve again: no second award.
	if rec := patchStatus(t, issue.ID, StatusInProgress, ""); rec.Code != http.StatusOK {
		t.Fatalf("reopen failed: %d", rec.Code)
	}
	if rec := patchStatus(t, issue.ID, StatusResolved, ""); rec.Code != http.StatusOK {
		t.Fatalf("second resolve failed: %d", rec.Code)
	}
	if fs.points["student-1"] != PointsResolution {
		t.Errorf("resolve/reopen/resolve must award once, got %d points", fs.points["student-1"])
	}
	if fs.issues[issue.ID].Status != StatusResolved {
		t.Errorf("expected resolved status, got %s", fs.issues[issue.ID].Status)
	}
}

func TestUpdateStatusHandler_RejectsUnknownStatus(t *testing.T) {
	fs := newFakeStore()
	issue := seedIssue(fs, "student-1", StatusPending)
	useStore(t, fs)

	rec := patchStatus(t, issue.ID, "closed", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
	if fs.points["student-1"] != 0 {
		t.Errorf("no points should be awarded, got %d", fs.points["student-1"])
	}
}

func TestSubmitHandler_MissingCoordinate(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodPost, "/draft/submit", strings.NewReader(`{}`)), "student-1")
	rec := httptest.NewRecorder()
	SubmitHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a geolocation read, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "location unavailable") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestStateJSON_NoIssueIDBeforeCompletion(t *testing.T) {
	data, err := json.Marshal(State{Kind: StateAwaitingConfirmation})
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if strings.Contains(string(data), "issue_id") {
		t.Errorf("issue_id must only appear once completed, got %s", data)
	}
}
