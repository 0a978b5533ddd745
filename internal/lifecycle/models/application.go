package models

import (
	"time"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// Status is the certification status of an application.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusUnderReview       Status = "under_review"
	StatusCertified         Status = "certified"
	StatusRejected          Status = "rejected"
	StatusRevisionRequested Status = "revision_requested"
)

// ParseStatus validates a stored or user-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusCertified, StatusRejected, StatusRevisionRequested:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown certification status: "+s)
}

// State is the status-specific part of an application. Each variant carries
// only the fields that are meaningful in that status, so review notes cannot
// exist on a certified application and listing visibility cannot exist on a
// draft.
type State interface {
	Status() Status
	isState()
}

type Draft struct{}

type Submitted struct{}

type UnderReview struct {
	StartedAt  time.Time
	ReviewerID id.ActorID
}

type Certified struct {
	CertifiedAt    time.Time
	ListingVisible bool
}

type Rejected struct {
	Reason     string
	DecidedAt  time.Time
	ReviewerID id.ActorID
}

type RevisionRequested struct {
	Notes      string
	DecidedAt  time.Time
	ReviewerID id.ActorID
}

func (Draft) Status() Status             { return StatusDraft }
func (Submitted) Status() Status         { return StatusSubmitted }
func (UnderReview) Status() Status       { return StatusUnderReview }
func (Certified) Status() Status         { return StatusCertified }
func (Rejected) Status() Status          { return StatusRejected }
func (RevisionRequested) Status() Status { return StatusRevisionRequested }

func (Draft) isState()             {}
func (Submitted) isState()         {}
func (UnderReview) isState()       {}
func (Certified) isState()         {}
func (Rejected) isState()          {}
func (RevisionRequested) isState() {}

// Application is the aggregate root of the certification lifecycle.
//
// Invariants:
//   - State is never nil; a new application starts in Draft
//   - Status changes only through Transition, which consults the transition table
//   - Review notes exist only in Rejected and RevisionRequested
//   - Listing visibility exists only in Certified
//   - SubmittedAt is set by the most recent submit and survives later states
type Application struct {
	ID          id.ApplicationID
	AccountID   id.AccountID
	Profile     Profile
	Documents   []DocumentRef
	State       State
	SubmittedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewApplication creates a draft owned by accountID.
func NewApplication(appID id.ApplicationID, accountID id.AccountID, profile Profile, now time.Time) (*Application, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owning account is required")
	}
	return &Application{
		ID:        appID,
		AccountID: accountID,
		Profile:   profile.Normalize(),
		State:     Draft{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (a *Application) Status() Status {
	if a.State == nil {
		return StatusDraft
	}
	return a.State.Status()
}

// RevisionNotes returns the admin's notes while rejected or revision_requested.
func (a *Application) RevisionNotes() (string, bool) {
	switch s := a.State.(type) {
	case Rejected:
		return s.Reason, true
	case RevisionRequested:
		return s.Notes, true
	}
	return "", false
}

// ListingVisible is true only for a certified application an admin listed.
func (a *Application) ListingVisible() bool {
	c, ok := a.State.(Certified)
	return ok && c.ListingVisible
}

// Editable reports whether the SME may change the profile or documents.
func (a *Application) Editable() bool {
	switch a.Status() {
	case StatusDraft, StatusRevisionRequested, StatusRejected:
		return true
	}
	return false
}

// ScorecardEditable reports whether reviewers may record scorecard changes.
func (a *Application) ScorecardEditable() bool {
	switch a.Status() {
	case StatusSubmitted, StatusUnderReview, StatusCertified:
		return true
	}
	return false
}

// CanEdit returns an error unless the profile may be changed.
func (a *Application) CanEdit() error {
	if !a.Editable() {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"application can only be edited while draft, rejected, or revision requested (current: "+string(a.Status())+")")
	}
	return nil
}

// UpdateProfile replaces the profile. Call CanEdit first.
func (a *Application) UpdateProfile(profile Profile, now time.Time) {
	a.Profile = profile.Normalize()
	a.UpdatedAt = now
}

// AttachDocument records an uploaded document reference, replacing an
// earlier upload of the same type. Call CanEdit first.
func (a *Application) AttachDocument(doc DocumentRef, now time.Time) {
	for i, existing := range a.Documents {
		if existing.Type == doc.Type {
			a.Documents[i] = doc
			a.UpdatedAt = now
			return
		}
	}
	a.Documents = append(a.Documents, doc)
	a.UpdatedAt = now
}

// SetListingVisible changes registry visibility of a certified application.
func (a *Application) SetListingVisible(visible bool, now time.Time) error {
	c, ok := a.State.(Certified)
	if !ok {
		return dErrors.New(dErrors.CodeNotCertified, "registry visibility can only be set on a certified application")
	}
	c.ListingVisible = visible
	a.State = c
	a.UpdatedAt = now
	return nil
}
