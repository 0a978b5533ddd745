package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
)

// InMemory keeps payment requests and enforces at most one live request per
// application, matching the payment_requests_one_live partial index.
type InMemory struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*models.PaymentRequest
}

func NewInMemory() *InMemory {
	return &InMemory{payments: make(map[id.PaymentID]*models.PaymentRequest)}
}

func (s *InMemory) Create(_ context.Context, p *models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("payment %s: %w", p.ID, sentinel.ErrConflict)
	}
	if p.Status.IsLive() && s.hasLiveLocked(p.ApplicationID, p.ID) {
		return fmt.Errorf("live payment for application %s: %w", p.ApplicationID, sentinel.ErrConflict)
	}
	s.payments[p.ID] = clone(p)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, paymentID id.PaymentID) (*models.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

// FindLiveByApplication returns the pending or processing request, if any.
func (s *InMemory) FindLiveByApplication(_ context.Context, appID id.ApplicationID) (*models.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.ApplicationID == appID && p.Status.IsLive() {
			return clone(p), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByApplication returns all requests for an application, oldest first.
func (s *InMemory) ListByApplication(_ context.Context, appID id.ApplicationID) ([]*models.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentRequest
	for _, p := range s.payments {
		if p.ApplicationID == appID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, p *models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if p.Status.IsLive() && s.hasLiveLocked(p.ApplicationID, p.ID) {
		return fmt.Errorf("live payment for application %s: %w", p.ApplicationID, sentinel.ErrConflict)
	}
	s.payments[p.ID] = clone(p)
	return nil
}

func (s *InMemory) hasLiveLocked(appID id.ApplicationID, except id.PaymentID) bool {
	for _, existing := range s.payments {
		if existing.ID != except && existing.ApplicationID == appID && existing.Status.IsLive() {
			return true
		}
	}
	return false
}

func clone(p *models.PaymentRequest) *models.PaymentRequest {
	c := *p
	if p.PaidAt != nil {
		t := *p.PaidAt
		c.PaidAt = &t
	}
	if p.CancelledAt != nil {
		t := *p.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
