package application

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
)

// InMemory keeps applications in a map. Reads return deep copies so callers
// cannot change stored state without going through Update.
type InMemory struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{apps: make(map[id.ApplicationID]*models.Application)}
}

func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return fmt.Errorf("application %s: %w", app.ID, sentinel.ErrConflict)
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(app), nil
}

func (s *InMemory) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func clone(app *models.Application) *models.Application {
	c := *app
	c.Documents = slices.Clone(app.Documents)
	c.Profile.Ownership.Owners = slices.Clone(app.Profile.Ownership.Owners)
	c.Profile.Operations.Markets = slices.Clone(app.Profile.Operations.Markets)
	c.Profile.Compliance.Licenses = slices.Clone(app.Profile.Compliance.Licenses)
	if app.SubmittedAt != nil {
		t := *app.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}
