package scorecard

import (
	"context"
	"maps"
	"sync"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
)

type InMemory struct {
	mu    sync.RWMutex
	cards map[id.ApplicationID]*models.Scorecard
}

func NewInMemory() *InMemory {
	return &InMemory{cards: make(map[id.ApplicationID]*models.Scorecard)}
}

// FindByApplication returns sentinel.ErrNotFound until the first edit.
func (s *InMemory) FindByApplication(_ context.Context, appID id.ApplicationID) (*models.Scorecard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.cards[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sc), nil
}

// Save upserts the scorecard.
func (s *InMemory) Save(_ context.Context, sc *models.Scorecard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[sc.ApplicationID] = clone(sc)
	return nil
}

func clone(sc *models.Scorecard) *models.Scorecard {
	c := *sc
	c.Values = maps.Clone(sc.Values)
	if sc.LastInternalReviewAt != nil {
		t := *sc.LastInternalReviewAt
		c.LastInternalReviewAt = &t
	}
	return &c
}
