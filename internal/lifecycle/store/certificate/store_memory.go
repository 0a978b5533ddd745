package certificate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
)

// InMemory keeps certificates keyed by id with a unique index on the
// application, matching the certificates_application_key constraint.
type InMemory struct {
	mu            sync.RWMutex
	certs         map[id.CertificateID]*models.Certificate
	byApplication map[id.ApplicationID]id.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		certs:         make(map[id.CertificateID]*models.Certificate),
		byApplication: make(map[id.ApplicationID]id.CertificateID),
	}
}

// Create inserts a certificate; a second certificate for the same
// application is a conflict.
func (s *InMemory) Create(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byApplication[cert.ApplicationID]; exists {
		return fmt.Errorf("certificate for application %s: %w", cert.ApplicationID, sentinel.ErrConflict)
	}
	if _, exists := s.certs[cert.ID]; exists {
		return fmt.Errorf("certificate %s: %w", cert.ID, sentinel.ErrConflict)
	}
	s.certs[cert.ID] = clone(cert)
	s.byApplication[cert.ApplicationID] = cert.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(cert), nil
}

func (s *InMemory) FindByApplication(_ context.Context, appID id.ApplicationID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certID, ok := s.byApplication[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.certs[certID]), nil
}

func (s *InMemory) FindByHash(_ context.Context, hash string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cert := range s.certs {
		if cert.Verification.Hash == hash {
			return clone(cert), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[cert.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.certs[cert.ID] = clone(cert)
	return nil
}

// ListDue returns active certificates whose expiry is at or before now,
// soonest first.
func (s *InMemory) ListDue(_ context.Context, now time.Time) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*models.Certificate
	for _, cert := range s.certs {
		if cert.IsDue(now) {
			due = append(due, clone(cert))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	return due, nil
}

func clone(cert *models.Certificate) *models.Certificate {
	c := *cert
	if cert.Revocation != nil {
		r := *cert.Revocation
		c.Revocation = &r
	}
	return &c
}
