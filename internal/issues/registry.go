package issues

import (
	"sync"

	"github.com/CampusCare/CC-Backend/internal/geo"
	"github.com/CampusCare/CC-Backend/internal/vision"
)

// Registry holds the in-progress workflow for each user session. One draft
// per user, created on demand; it dies with an explicit Drop.
type Registry struct {
	mu        sync.Mutex
	workflows map[string]*Workflow

	validator vision.Validator
	gate      geo.Gate
	store     Store
	blobs     BlobStore
	notifier  Notifier
	catalog   *Catalog
}

func NewRegistry(validator vision.Validator, gate geo.Gate, store Store, blobs BlobStore, notifier Notifier, catalog *Catalog) *Registry {
	return &Registry{
		workflows: make(map[string]*Workflow),
		validator: validator,
		gate:      gate,
		store:     store,
		blobs:     blobs,
		notifier:  notifier,
		catalog:   catalog,
	}
}

// Get returns the user's workflow, creating one if none is active.
func (r *Registry) Get(userID string) *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wf, ok := r.workflows[userID]; ok {
		return wf
	}
	wf := NewWorkflow(userID, r.validator, r.gate, r.store, r.blobs, r.notifier, r.catalog)
	r.workflows[userID] = wf
	return wf
}

// Drop discards the user's workflow without side effects.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workflows, userID)
}
