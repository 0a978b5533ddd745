package models

import (
	"fmt"
	"strings"
	"time"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// CertificateStatus is the validity status of an issued certificate.
type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "active"
	CertificateExpired CertificateStatus = "expired"
	CertificateRevoked CertificateStatus = "revoked"
)

func ParseCertificateStatus(s string) (CertificateStatus, error) {
	switch st := CertificateStatus(s); st {
	case CertificateActive, CertificateExpired, CertificateRevoked:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown certificate status: "+s)
}

// Revocation is present only while a certificate is revoked.
type Revocation struct {
	Reason    string
	RevokedAt time.Time
}

// Verification is the public proof attached to a certificate version.
type Verification struct {
	Hash string
	URL  string
}

// Certificate is the verifiable artifact of a certified application.
//
// Invariants:
//   - One certificate per application; new versions reuse the same row
//   - Version starts at 1 and only grows
//   - Revocation is non-nil exactly when Status is revoked
//   - Revoking never changes the application's certification status
type Certificate struct {
	ID            id.CertificateID
	Number        string
	ApplicationID id.ApplicationID
	Version       int
	Status        CertificateStatus
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Verification  Verification
	Revocation    *Revocation
	UpdatedAt     time.Time
}

// CertificateNumber formats the externally quoted number,
// CERT-<year>-<first 8 hex digits of the id, upper case>.
func CertificateNumber(certID id.CertificateID, issuedAt time.Time) string {
	hex := strings.ReplaceAll(certID.String(), "-", "")
	return fmt.Sprintf("CERT-%d-%s", issuedAt.Year(), strings.ToUpper(hex[:8]))
}

// NewCertificate issues version 1 of a certificate.
func NewCertificate(certID id.CertificateID, appID id.ApplicationID, now time.Time, validity time.Duration, v Verification) *Certificate {
	return &Certificate{
		ID:            certID,
		Number:        CertificateNumber(certID, now),
		ApplicationID: appID,
		Version:       1,
		Status:        CertificateActive,
		IssuedAt:      now,
		ExpiresAt:     now.Add(validity),
		Verification:  v,
		UpdatedAt:     now,
	}
}

// ValidityPeriod converts months to a duration anchored at now, so that a
// twelve month certificate issued on the 31st lands on the same calendar
// date the following year.
func ValidityPeriod(now time.Time, months int) time.Duration {
	return now.AddDate(0, months, 0).Sub(now)
}

// CanRevoke rejects a second revocation.
func (c *Certificate) CanRevoke() error {
	if c.Status == CertificateRevoked {
		return dErrors.New(dErrors.CodeAlreadyRevoked, "certificate "+c.Number+" is already revoked")
	}
	return nil
}

// ApplyRevocation marks the certificate revoked. Call CanRevoke first.
func (c *Certificate) ApplyRevocation(reason string, now time.Time) {
	c.Status = CertificateRevoked
	c.Revocation = &Revocation{Reason: strings.TrimSpace(reason), RevokedAt: now}
	c.UpdatedAt = now
}

// Reissue produces the next version. Allowed from any status; the new
// expiry never moves earlier than the previous one.
func (c *Certificate) Reissue(now time.Time, validity time.Duration, v Verification) {
	expiry := now.Add(validity)
	if c.ExpiresAt.After(expiry) {
		expiry = c.ExpiresAt
	}
	c.Version++
	c.Status = CertificateActive
	c.ExpiresAt = expiry
	c.Verification = v
	c.Revocation = nil
	c.UpdatedAt = now
}

// IsDue reports whether an active certificate has reached its expiry.
func (c *Certificate) IsDue(now time.Time) bool {
	return c.Status == CertificateActive && !c.ExpiresAt.After(now)
}

// Expire marks a due certificate expired, returning false if it was not due.
func (c *Certificate) Expire(now time.Time) bool {
	if !c.IsDue(now) {
		return false
	}
	c.Status = CertificateExpired
	c.UpdatedAt = now
	return true
}
