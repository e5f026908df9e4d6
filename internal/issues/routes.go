package issues

import (
	"net/http"

	"github.com/CampusCare/CC-Backend/internal/auth"
	"github.com/CampusCare/CC-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := auth.SessionInfo{}

	// Public routes
	r.Get("/categories", CategoriesHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))

		r.Post("/draft", StartDraftHandler)
		r.Get("/draft", DraftStateHandler)
		r.Post("/draft/location", LocationHandler)
		r.Post("/draft/urgency", UrgencyHandler)
		r.Post("/draft/submit", SubmitHandler)
		r.Post("/draft/reset", ResetHandler)

		r.Get("/", ListIssuesHandler)
		r.Get("/{id}", GetIssueHandler)
	})

	// Maintenance routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))
		r.Use(middleware.MaintenanceMiddleware(sessionFetcher))

		r.Patch("/{id}/status", UpdateStatusHandler)
	})

	return r
}
