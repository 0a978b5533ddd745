package models

import (
	"time"

	id "certflow/pkg/domain"
)

// StateRecord is the flat persisted form of a State. Columns not meaningful
// for the status are zero.
type StateRecord struct {
	Status         Status
	Notes          string
	ListingVisible bool
	ChangedAt      time.Time
	ReviewerID     id.ActorID
}

// Record flattens the application's state for storage.
func (a *Application) Record() StateRecord {
	switch s := a.State.(type) {
	case UnderReview:
		return StateRecord{Status: StatusUnderReview, ChangedAt: s.StartedAt, ReviewerID: s.ReviewerID}
	case Certified:
		return StateRecord{Status: StatusCertified, ChangedAt: s.CertifiedAt, ListingVisible: s.ListingVisible}
	case Rejected:
		return StateRecord{Status: StatusRejected, Notes: s.Reason, ChangedAt: s.DecidedAt, ReviewerID: s.ReviewerID}
	case RevisionRequested:
		return StateRecord{Status: StatusRevisionRequested, Notes: s.Notes, ChangedAt: s.DecidedAt, ReviewerID: s.ReviewerID}
	}
	return StateRecord{Status: a.Status()}
}

// State rebuilds the variant, dropping fields the status does not carry.
func (r StateRecord) State() State {
	switch r.Status {
	case StatusSubmitted:
		return Submitted{}
	case StatusUnderReview:
		return UnderReview{StartedAt: r.ChangedAt, ReviewerID: r.ReviewerID}
	case StatusCertified:
		return Certified{CertifiedAt: r.ChangedAt, ListingVisible: r.ListingVisible}
	case StatusRejected:
		return Rejected{Reason: r.Notes, DecidedAt: r.ChangedAt, ReviewerID: r.ReviewerID}
	case StatusRevisionRequested:
		return RevisionRequested{Notes: r.Notes, DecidedAt: r.ChangedAt, ReviewerID: r.ReviewerID}
	}
	return Draft{}
}
