package issues

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/CampusCare/CC-Backend/internal/geo"
	"github.com/CampusCare/CC-Backend/internal/utils"
	"github.com/CampusCare/CC-Backend/internal/vision"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadBytes caps an uploaded photo at 10 MiB.
const maxUploadBytes = 10 << 20

type stateResponse struct {
	State State `json:"state"`
	Draft Draft `json:"draft"`
}

func writeState(w http.ResponseWriter, status int, wf *Workflow) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(stateResponse{State: wf.State(), Draft: wf.DraftView()})
}

// StartDraftHandler begins a draft: multipart photo + category
// (+ subcategory, description). Triggers image validation.
func StartDraftHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "Photo is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read photo", http.StatusBadRequest)
		return
	}

	wf := registry.Get(userID)
	err = wf.Begin(r.Context(), image, header.Filename,
		r.FormValue("category"), r.FormValue("subcategory"), r.FormValue("description"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, vision.ErrServiceUnavailable):
			http.Error(w, "Image validation is temporarily unavailable, please retry", http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeState(w, http.StatusOK, wf)
}

// DraftStateHandler returns the current workflow state and draft snapshot.
func DraftStateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeState(w, http.StatusOK, registry.Get(userID))
}

// LocationHandler records the building/floor/room triple.
func LocationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Building string `json:"building"`
		Floor    string `json:"floor"`
		Room     string `json:"room"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	wf := registry.Get(userID)
	if err := wf.SetLocation(input.Building, input.Floor, input.Room); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeState(w, http.StatusOK, wf)
}

// UrgencyHandler records the urgency tier.
func UrgencyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Urgency string `json:"urgency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	wf := registry.Get(userID)
	if err := wf.SetUrgency(input.Urgency); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeState(w, http.StatusOK, wf)
}

// SubmitHandler confirms the draft: the server-side geofence gate runs on
// the supplied coordinate and, when it passes, the issue is persisted.
func SubmitHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Absent fields mean the client never got a geolocation read (denied
	// permission, no fix). (0, 0) is a legal coordinate and goes to the gate.
	if input.Latitude == nil || input.Longitude == nil {
		http.Error(w, geo.ErrLocationUnavailable.Error()+", enable location access and retry", http.StatusServiceUnavailable)
		return
	}

	wf := registry.Get(userID)
	issueID, err := wf.Submit(r.Context(), geo.Coordinate{Latitude: *input.Latitude, Longitude: *input.Longitude})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrOutsideGeofence):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, geo.ErrServiceUnavailable):
			http.Error(w, "Could not verify your location, please retry", http.StatusServiceUnavailable)
		case errors.Is(err, ErrPersistence):
			http.Error(w, "Submission could not be saved, your draft is preserved", http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	registry.Drop(userID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"issue_id": issueID.String()})
}

// ResetHandler discards the draft. Also the acknowledgement path out of
// Rejected.
func ResetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	wf := registry.Get(userID)
	wf.Reset()
	writeState(w, http.StatusOK, wf)
}

// ListIssuesHandler lists issues. Students see their own; the maintenance
// role sees all.
func ListIssuesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reporterFilter := userID
	if isMaintenance(r.Context(), userID) {
		reporterFilter = ""
	}

	list, err := store.ListIssues(r.Context(), reporterFilter, r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// GetIssueHandler returns one issue, enforcing the same row-level rule as
// the list.
func GetIssueHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}

	issue, err := store.GetIssue(r.Context(), issueID)
	if err != nil {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}

	if issue.ReporterID != userID && !isMaintenance(r.Context(), userID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issue)
}

// UpdateStatusHandler lets maintenance advance an issue's status, with an
// optional comment and resolution proof photo. Resolving awards the
// reporter the resolution points.
func UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}

	issue, err := store.GetIssue(r.Context(), issueID)
	if err != nil {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	status := r.FormValue("status")
	switch status {
	case StatusPending, StatusInProgress, StatusResolved:
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	resolutionURL := ""
	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "Failed to read photo", http.StatusBadRequest)
			return
		}
		url, err := blobs.Upload(r.Context(), "resolutions/"+issueID.String()+"/"+header.Filename, data)
		if err != nil {
			http.Error(w, "Failed to store photo", http.StatusInternalServerError)
			return
		}
		resolutionURL = url
	}

	if err := store.UpdateIssueStatus(r.Context(), issue.ID, status, r.FormValue("comment"), resolutionURL); err != nil {
		http.Error(w, "Failed to update status: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Award resolution points once per issue: only the first transition
	// into resolved pays out. ResolvedAt is sticky, so a resolve, reopen,
	// resolve-again cycle does not award twice.
	if status == StatusResolved && issue.ResolvedAt == nil {
		if err := store.IncrementPoints(r.Context(), issue.ReporterID, PointsResolution); err != nil {
			log.Printf("[issues] resolution points award failed for user %s: %v", issue.ReporterID, err)
		}
	}

	updated, err := store.GetIssue(r.Context(), issueID)
	if err != nil {
		http.Error(w, "Issue not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// CategoriesHandler returns the category catalog.
func CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(catalog)
}

func isMaintenance(ctx context.Context, userID string) bool {
	role, err := store.UserRole(ctx, userID)
	if err != nil {
		return false
	}
	return role == "maintenance"
}
