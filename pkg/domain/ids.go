// Package domain holds the typed identifiers shared across the lifecycle
// engine. Each identifier is a distinct named UUID type so an application id
// can never be passed where a certificate id is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "certflow/pkg/domain-errors"
)

type (
	ApplicationID uuid.UUID
	AccountID     uuid.UUID
	ActorID       uuid.UUID
	CertificateID uuid.UUID
	PaymentID     uuid.UUID
	AuditEntryID  uuid.UUID
)

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ApplicationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) String() string     { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) String() string       { return uuid.UUID(id).String() }
func (id ActorID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) String() string { return uuid.UUID(id).String() }
func (id CertificateID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) String() string     { return uuid.UUID(id).String() }
func (id PaymentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) String() string  { return uuid.UUID(id).String() }

// MarshalText renders ids in canonical form in JSON and logs.
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AccountID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id CertificateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id PaymentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AuditEntryID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

// UnmarshalText accepts any UUID form, including the nil UUID of the system
// actor, so published events round-trip.
func (id *ApplicationID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *AccountID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *ActorID) UnmarshalText(b []byte) error       { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *CertificateID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *PaymentID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *AuditEntryID) UnmarshalText(b []byte) error  { return unmarshalUUID((*uuid.UUID)(id), b) }

func unmarshalUUID(dst *uuid.UUID, b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid id")
	}
	*dst = u
	return nil
}

// SystemActor is recorded as the actor of time-driven transitions.
var SystemActor = ActorID(uuid.Nil)

// NewApplicationID returns a fresh random application id.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewCertificateID returns a fresh random certificate id.
func NewCertificateID() CertificateID { return CertificateID(uuid.New()) }

// NewPaymentID returns a fresh random payment id.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

// NewAuditEntryID returns a fresh random audit entry id.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application id")
	return ApplicationID(u), err
}

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	return AccountID(u), err
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor id")
	return ActorID(u), err
}

func ParseCertificateID(s string) (CertificateID, error) {
	u, err := parseUUID(s, "certificate id")
	return CertificateID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment id")
	return PaymentID(u), err
}

// parseUUID accepts only the canonical 36 character form and rejects the nil
// UUID, which is reserved for the system actor.
func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}
