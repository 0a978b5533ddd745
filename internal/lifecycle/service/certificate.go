package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/requestcontext"
)

// CertificateVerification is the public view of a certificate. It carries
// no internal identifiers.
type CertificateVerification struct {
	Number    string                   `json:"certificate_number"`
	Status    models.CertificateStatus `json:"status"`
	Version   int                      `json:"version"`
	IssuedAt  time.Time                `json:"issued_at"`
	ExpiresAt time.Time                `json:"expires_at"`
	Valid     bool                     `json:"valid"`
}

func verificationOf(cert *models.Certificate, now time.Time) *CertificateVerification {
	return &CertificateVerification{
		Number:    cert.Number,
		Status:    cert.Status,
		Version:   cert.Version,
		IssuedAt:  cert.IssuedAt,
		ExpiresAt: cert.ExpiresAt,
		Valid:     cert.Status == models.CertificateActive && cert.ExpiresAt.After(now),
	}
}

// newVerification draws a fresh public hash and the URL that resolves it.
func (s *Service) newVerification() (models.Verification, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return models.Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification hash")
	}
	hash := hex.EncodeToString(buf)
	return models.Verification{
		Hash: hash,
		URL:  strings.TrimRight(s.cfg.VerificationBaseURL, "/") + "/verify/" + hash,
	}, nil
}

// GetCertificate returns a certificate by id.
func (s *Service) GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	cert, err := s.certificates.FindByID(ctx, certID)
	if err != nil {
		return nil, translate(err, "certificate")
	}
	return cert, nil
}

// CertificateForApplication returns the certificate issued to an application.
func (s *Service) CertificateForApplication(ctx context.Context, appID id.ApplicationID) (*models.Certificate, error) {
	app, err := s.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	cert, err := s.certificates.FindByApplication(ctx, app.ID)
	if err != nil {
		return nil, translate(err, "certificate")
	}
	return cert, nil
}

// RevokeCertificate revokes a certificate with an optional reason. The
// application's status is left as it is.
func (s *Service) RevokeCertificate(ctx context.Context, certID id.CertificateID, reason string) (cert *models.Certificate, err error) {
	ctx, span := s.startSpan(ctx, "RevokeCertificate")
	defer func() { endSpan(span, err) }()

	cert, err = s.GetCertificate(ctx, certID)
	if err != nil {
		return nil, err
	}
	appID := cert.ApplicationID

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		cert, err = s.GetCertificate(txCtx, certID)
		if err != nil {
			return err
		}
		if err := cert.CanRevoke(); err != nil {
			return err
		}
		cert.ApplyRevocation(reason, requestcontext.Now(txCtx))
		if err := s.certificates.Update(txCtx, cert); err != nil {
			return translate(err, "certificate")
		}
		description := fmt.Sprintf("Certificate %s revoked", cert.Number)
		if cert.Revocation.Reason != "" {
			description += ": " + cert.Revocation.Reason
		}
		return s.emit(txCtx, appID, audit.ActionCertificateRevoked, description)
	})
	if err != nil {
		s.rejected(ctx, "revoke_certificate", appID, err)
		return nil, err
	}

	s.refreshCache(ctx, cert.Verification.Hash, verificationOf(cert, requestcontext.Now(ctx)))
	if s.metrics != nil {
		s.metrics.IncrementCertificates("revoked")
	}
	s.logger.InfoContext(ctx, "certificate revoked",
		"application_id", appID,
		"certificate_number", cert.Number,
	)
	return cert, nil
}

// ReissueCertificate produces the next version of a certificate with a new
// verification hash. Allowed from any status.
func (s *Service) ReissueCertificate(ctx context.Context, certID id.CertificateID) (cert *models.Certificate, err error) {
	ctx, span := s.startSpan(ctx, "ReissueCertificate")
	defer func() { endSpan(span, err) }()

	cert, err = s.GetCertificate(ctx, certID)
	if err != nil {
		return nil, err
	}
	appID := cert.ApplicationID
	staleHash := ""

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		cert, err = s.GetCertificate(txCtx, certID)
		if err != nil {
			return err
		}
		verification, err := s.newVerification()
		if err != nil {
			return err
		}
		now := requestcontext.Now(txCtx)
		staleHash = cert.Verification.Hash
		cert.Reissue(now, models.ValidityPeriod(now, s.cfg.CertificateValidityMonths), verification)
		if err := s.certificates.Update(txCtx, cert); err != nil {
			return translate(err, "certificate")
		}
		return s.emit(txCtx, appID, audit.ActionCertificateReissued,
			fmt.Sprintf("Certificate %s reissued as version %d, valid until %s",
				cert.Number, cert.Version, cert.ExpiresAt.Format(time.DateOnly)))
	})
	if err != nil {
		s.rejected(ctx, "reissue_certificate", appID, err)
		return nil, err
	}

	s.refreshCache(ctx, staleHash, nil)
	if s.metrics != nil {
		s.metrics.IncrementCertificates("reissued")
	}
	s.logger.InfoContext(ctx, "certificate reissued",
		"application_id", appID,
		"certificate_number", cert.Number,
		"version", cert.Version,
	)
	return cert, nil
}

// ExpireDue marks every active certificate past its expiry as expired and
// returns how many changed. Each certificate expires in its own transaction
// so one failure does not hold back the rest.
func (s *Service) ExpireDue(ctx context.Context) (expired int, err error) {
	ctx, span := s.startSpan(ctx, "ExpireDue")
	defer func() { endSpan(span, err) }()

	ctx = requestcontext.WithActor(ctx, id.SystemActor, "")
	now := requestcontext.Now(ctx)
	due, err := s.certificates.ListDue(ctx, now)
	if err != nil {
		return 0, translate(err, "certificates")
	}

	var errs []error
	for _, candidate := range due {
		cert, err := s.expireOne(ctx, candidate.ID, candidate.ApplicationID, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "certificate expiry failed",
				"certificate_id", candidate.ID,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		if cert != nil {
			expired++
			s.refreshCache(ctx, cert.Verification.Hash, verificationOf(cert, now))
		}
	}
	if s.metrics != nil && expired > 0 {
		s.metrics.AddCertificates("expired", expired)
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "certificates expired", "count", expired)
	}
	return expired, errors.Join(errs...)
}

// expireOne returns the expired certificate, or nil when it no longer
// needed expiring.
func (s *Service) expireOne(ctx context.Context, certID id.CertificateID, appID id.ApplicationID, now time.Time) (*models.Certificate, error) {
	var expired *models.Certificate
	err := s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		cert, err := s.GetCertificate(txCtx, certID)
		if err != nil {
			return err
		}
		// Revoked or reissued since the listing.
		if !cert.Expire(now) {
			return nil
		}
		if err := s.certificates.Update(txCtx, cert); err != nil {
			return translate(err, "certificate")
		}
		expired = cert
		return s.emit(txCtx, appID, audit.ActionCertificateExpired,
			fmt.Sprintf("Certificate %s expired", cert.Number))
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// VerifyCertificate resolves a public verification hash.
func (s *Service) VerifyCertificate(ctx context.Context, hash string) (*CertificateVerification, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "verification hash is required")
	}
	now := requestcontext.Now(ctx)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, hash)
		if err != nil {
			s.logger.WarnContext(ctx, "verification cache read failed", "error", err)
		} else if ok {
			cached.Valid = cached.Status == models.CertificateActive && cached.ExpiresAt.After(now)
			return cached, nil
		}
	}

	cert, err := s.certificates.FindByHash(ctx, hash)
	if err != nil {
		return nil, translate(err, "certificate")
	}
	v := verificationOf(cert, now)
	if s.cache != nil {
		if err := s.cache.Fill(ctx, hash, v); err != nil {
			s.logger.WarnContext(ctx, "verification cache write failed", "error", err)
		}
	}
	return v, nil
}

// refreshCache writes the committed view of a hash over whatever is cached,
// or a tombstone when v is nil. Failures only log; the entry ages out with
// its TTL.
func (s *Service) refreshCache(ctx context.Context, hash string, v *CertificateVerification) {
	if s.cache == nil || hash == "" {
		return
	}
	if err := s.cache.Replace(context.WithoutCancel(ctx), hash, v); err != nil {
		s.logger.WarnContext(ctx, "verification cache invalidation failed", "error", err)
	}
}
