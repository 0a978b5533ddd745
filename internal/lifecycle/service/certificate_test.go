package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"certflow/internal/lifecycle/models"
	"certflow/internal/lifecycle/service"
	"certflow/internal/lifecycle/service/mocks"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
)

// =============================================================================
// Registry visibility
// =============================================================================

func (s *LifecycleSuite) TestSetVisibility() {
	s.Run("requires certification", func() {
		app := s.underReview()
		_, err := s.service.SetVisibility(s.adminCtx(), app.ID, true)
		s.requireCode(err, dErrors.CodeNotCertified)
		s.NotContains(s.trail(app.ID), audit.ActionVisibilityChanged)
	})

	s.Run("toggles the listing of a certified application", func() {
		app, _ := s.certified()

		got, err := s.service.SetVisibility(s.adminCtx(), app.ID, true)
		s.Require().NoError(err)
		s.True(got.ListingVisible())
		s.True(s.stored(app.ID).ListingVisible())

		got, err = s.service.SetVisibility(s.adminCtx(), app.ID, false)
		s.Require().NoError(err)
		s.False(got.ListingVisible())

		trail := s.trail(app.ID)
		s.Equal([]audit.Action{audit.ActionVisibilityChanged, audit.ActionVisibilityChanged}, trail[len(trail)-2:])
	})
}

// =============================================================================
// Certificate revocation, reissue and expiry
// =============================================================================

func (s *LifecycleSuite) TestRevokeCertificate() {
	app, cert := s.certified()
	s.advance(48 * time.Hour)

	revoked, err := s.service.RevokeCertificate(s.adminCtx(), cert.ID, "  Fraudulent filing ")
	s.Require().NoError(err)
	s.Equal(models.CertificateRevoked, revoked.Status)
	s.Require().NotNil(revoked.Revocation)
	s.Equal("Fraudulent filing", revoked.Revocation.Reason)
	s.True(revoked.Revocation.RevokedAt.Equal(s.now))

	s.Equal(models.StatusCertified, s.stored(app.ID).Status(), "revocation leaves the application alone")
	trail := s.trail(app.ID)
	s.Equal(audit.ActionCertificateRevoked, trail[len(trail)-1])

	s.Run("revoking again changes nothing", func() {
		before := len(s.trail(app.ID))
		_, err := s.service.RevokeCertificate(s.adminCtx(), cert.ID, "again")
		s.requireCode(err, dErrors.CodeAlreadyRevoked)
		s.Len(s.trail(app.ID), before)
	})

	s.Run("unknown certificate", func() {
		_, err := s.service.RevokeCertificate(s.adminCtx(), id.NewCertificateID(), "")
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *LifecycleSuite) TestRevokeWithoutReason() {
	_, cert := s.certified()
	revoked, err := s.service.RevokeCertificate(s.adminCtx(), cert.ID, "")
	s.Require().NoError(err)
	s.Require().NotNil(revoked.Revocation)
	s.Empty(revoked.Revocation.Reason)
}

func (s *LifecycleSuite) TestReissueCertificate() {
	app, cert := s.certified()
	_, err := s.service.RevokeCertificate(s.adminCtx(), cert.ID, "address change")
	s.Require().NoError(err)

	s.advance(30 * 24 * time.Hour)
	reissued, err := s.service.ReissueCertificate(s.adminCtx(), cert.ID)
	s.Require().NoError(err)
	s.Equal(cert.ID, reissued.ID)
	s.Equal(cert.Number, reissued.Number)
	s.Equal(2, reissued.Version)
	s.Equal(models.CertificateActive, reissued.Status)
	s.Nil(reissued.Revocation)
	s.NotEqual(cert.Verification.Hash, reissued.Verification.Hash)
	s.True(reissued.ExpiresAt.Equal(s.now.AddDate(0, 12, 0)))

	trail := s.trail(app.ID)
	s.Equal(audit.ActionCertificateReissued, trail[len(trail)-1])

	s.Run("expiry never moves earlier", func() {
		// Back-dated clock: the previous expiry is later than now+12 months.
		s.now = epoch
		again, err := s.service.ReissueCertificate(s.adminCtx(), cert.ID)
		s.Require().NoError(err)
		s.Equal(3, again.Version)
		s.True(again.ExpiresAt.Equal(reissued.ExpiresAt))
	})
}

func (s *LifecycleSuite) TestExpireDue() {
	app, cert := s.certified()
	other, otherCert := s.certified()
	_, err := s.service.RevokeCertificate(s.adminCtx(), otherCert.ID, "withdrawn")
	s.Require().NoError(err)

	n, err := s.service.ExpireDue(s.adminCtx())
	s.Require().NoError(err)
	s.Zero(n, "nothing is due yet")

	s.now = cert.ExpiresAt
	n, err = s.service.ExpireDue(s.adminCtx())
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.service.GetCertificate(s.adminCtx(), cert.ID)
	s.Require().NoError(err)
	s.Equal(models.CertificateExpired, got.Status)
	s.Equal(models.StatusCertified, s.stored(app.ID).Status())

	entries, err := s.auditLog.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	last := entries[len(entries)-1]
	s.Equal(audit.ActionCertificateExpired, last.Action)
	s.Equal(id.SystemActor, last.ActorID)

	s.NotContains(s.trail(other.ID), audit.ActionCertificateExpired, "revoked certificates do not expire")

	n, err = s.service.ExpireDue(s.adminCtx())
	s.Require().NoError(err)
	s.Zero(n)
}

// =============================================================================
// Public verification
// =============================================================================

func (s *LifecycleSuite) TestVerifyCertificate() {
	_, cert := s.certified()

	v, err := s.service.VerifyCertificate(s.adminCtx(), cert.Verification.Hash)
	s.Require().NoError(err)
	s.Equal(cert.Number, v.Number)
	s.Equal(1, v.Version)
	s.True(v.Valid)

	_, err = s.service.VerifyCertificate(s.adminCtx(), "deadbeef")
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.service.VerifyCertificate(s.adminCtx(), "   ")
	s.requireCode(err, dErrors.CodeBadRequest)

	_, err = s.service.RevokeCertificate(s.adminCtx(), cert.ID, "")
	s.Require().NoError(err)
	v, err = s.service.VerifyCertificate(s.adminCtx(), cert.Verification.Hash)
	s.Require().NoError(err)
	s.Equal(models.CertificateRevoked, v.Status)
	s.False(v.Valid)
}

func (s *LifecycleSuite) TestVerificationCache() {
	ctrl := gomock.NewController(s.T())
	cache := mocks.NewMockVerificationCache(ctrl)
	s.service = s.newService(s.cfg, service.WithVerificationCache(cache))
	_, cert := s.certified()
	hash := cert.Verification.Hash

	s.Run("miss reads the store and fills the cache", func() {
		cache.EXPECT().Get(gomock.Any(), hash).Return(nil, false, nil)
		cache.EXPECT().Fill(gomock.Any(), hash, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, v *service.CertificateVerification) error {
				s.Equal(cert.Number, v.Number)
				return nil
			})
		_, err := s.service.VerifyCertificate(s.adminCtx(), hash)
		s.Require().NoError(err)
	})

	s.Run("hit skips the store", func() {
		cached := &service.CertificateVerification{Number: "CERT-CACHED", Status: models.CertificateActive, Version: 1, ExpiresAt: s.now.AddDate(1, 0, 0)}
		cache.EXPECT().Get(gomock.Any(), hash).Return(cached, true, nil)
		v, err := s.service.VerifyCertificate(s.adminCtx(), hash)
		s.Require().NoError(err)
		s.Equal("CERT-CACHED", v.Number)
		s.True(v.Valid)
	})

	s.Run("cache failures fall back to the store", func() {
		cache.EXPECT().Get(gomock.Any(), hash).Return(nil, false, errors.New("connection refused"))
		cache.EXPECT().Fill(gomock.Any(), hash, gomock.Any()).Return(errors.New("connection refused"))
		v, err := s.service.VerifyCertificate(s.adminCtx(), hash)
		s.Require().NoError(err)
		s.Equal(cert.Number, v.Number)
	})

	s.Run("revocation replaces the entry with the revoked view", func() {
		cache.EXPECT().Replace(gomock.Any(), hash, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, v *service.CertificateVerification) error {
				s.Require().NotNil(v)
				s.Equal(models.CertificateRevoked, v.Status)
				s.False(v.Valid)
				return nil
			})
		_, err := s.service.RevokeCertificate(s.adminCtx(), cert.ID, "")
		s.Require().NoError(err)
	})

	s.Run("reissue tombstones the superseded hash", func() {
		cache.EXPECT().Replace(gomock.Any(), hash, gomock.Nil()).Return(nil)
		_, err := s.service.ReissueCertificate(s.adminCtx(), cert.ID)
		s.Require().NoError(err)
	})
}

// nxCache is a map-backed VerificationCache with the write-if-absent fill of
// the Redis cache. beforeFill runs once, ahead of the next fill.
type nxCache struct {
	mu         sync.Mutex
	entries    map[string]*service.CertificateVerification
	beforeFill func()
}

func newNXCache() *nxCache {
	return &nxCache{entries: make(map[string]*service.CertificateVerification)}
}

func (c *nxCache) Get(_ context.Context, hash string) (*service.CertificateVerification, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.entries[hash]
	if v == nil {
		return nil, false, nil
	}
	cp := *v
	return &cp, true, nil
}

func (c *nxCache) Fill(_ context.Context, hash string, v *service.CertificateVerification) error {
	c.mu.Lock()
	hook := c.beforeFill
	c.beforeFill = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[hash]; exists {
		return nil
	}
	cp := *v
	c.entries[hash] = &cp
	return nil
}

func (c *nxCache) Replace(_ context.Context, hash string, v *service.CertificateVerification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == nil {
		c.entries[hash] = nil
		return nil
	}
	cp := *v
	c.entries[hash] = &cp
	return nil
}

// A lookup that read the store before a revocation committed must not put
// the active view back into the cache.
func (s *LifecycleSuite) TestVerificationCacheRevokedDuringFill() {
	cache := newNXCache()
	s.service = s.newService(s.cfg, service.WithVerificationCache(cache))
	_, cert := s.certified()
	hash := cert.Verification.Hash

	cache.beforeFill = func() {
		_, err := s.service.RevokeCertificate(s.adminCtx(), cert.ID, "fraud")
		s.Require().NoError(err)
	}
	first, err := s.service.VerifyCertificate(s.adminCtx(), hash)
	s.Require().NoError(err)
	s.Equal(models.CertificateActive, first.Status, "read before the revocation")

	v, err := s.service.VerifyCertificate(s.adminCtx(), hash)
	s.Require().NoError(err)
	s.Equal(models.CertificateRevoked, v.Status)
	s.False(v.Valid)
}

func (s *LifecycleSuite) TestVerificationCacheReissuedDuringFill() {
	cache := newNXCache()
	s.service = s.newService(s.cfg, service.WithVerificationCache(cache))
	_, cert := s.certified()
	hash := cert.Verification.Hash

	cache.beforeFill = func() {
		_, err := s.service.ReissueCertificate(s.adminCtx(), cert.ID)
		s.Require().NoError(err)
	}
	_, err := s.service.VerifyCertificate(s.adminCtx(), hash)
	s.Require().NoError(err)

	_, err = s.service.VerifyCertificate(s.adminCtx(), hash)
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *LifecycleSuite) TestVerificationCacheExpiredAfterFill() {
	cache := newNXCache()
	s.service = s.newService(s.cfg, service.WithVerificationCache(cache))
	_, cert := s.certified()
	hash := cert.Verification.Hash

	_, err := s.service.VerifyCertificate(s.adminCtx(), hash)
	s.Require().NoError(err)

	s.now = cert.ExpiresAt
	n, err := s.service.ExpireDue(s.adminCtx())
	s.Require().NoError(err)
	s.Equal(1, n)

	v, err := s.service.VerifyCertificate(s.adminCtx(), hash)
	s.Require().NoError(err)
	s.Equal(models.CertificateExpired, v.Status)
}
