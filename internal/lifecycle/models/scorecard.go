package models

import (
	"time"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// Dimension is one axis of the internal review scorecard.
type Dimension string

const (
	DimensionLegalOwnership      Dimension = "legal_ownership"
	DimensionFinancialDiscipline Dimension = "financial_discipline"
	DimensionBusinessModel       Dimension = "business_model"
	DimensionGovernanceControls  Dimension = "governance_controls"
	DimensionRiskContinuity      Dimension = "risk_continuity"
)

var Dimensions = []Dimension{
	DimensionLegalOwnership,
	DimensionFinancialDiscipline,
	DimensionBusinessModel,
	DimensionGovernanceControls,
	DimensionRiskContinuity,
}

func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown scorecard dimension: "+s)
}

// DimensionStatus is a reviewer's assessment of one dimension.
type DimensionStatus string

const (
	DimNotReviewed           DimensionStatus = "not_reviewed"
	DimReady                 DimensionStatus = "ready"
	DimRequiresClarification DimensionStatus = "requires_clarification"
	DimUnderReview           DimensionStatus = "under_review"
	DimDeferred              DimensionStatus = "deferred"
	DimNotCertified          DimensionStatus = "not_certified"
)

func ParseDimensionStatus(s string) (DimensionStatus, error) {
	switch st := DimensionStatus(s); st {
	case DimNotReviewed, DimReady, DimRequiresClarification, DimUnderReview, DimDeferred, DimNotCertified:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown scorecard value: "+s)
}

// Scorecard is the advisory internal review of an application. It never
// drives the certification status.
type Scorecard struct {
	ApplicationID        id.ApplicationID
	Values               map[Dimension]DimensionStatus
	InternalNotes        string
	LastInternalReviewAt *time.Time
	UpdatedBy            id.ActorID
}

// NewScorecard returns a scorecard with every dimension not reviewed.
func NewScorecard(appID id.ApplicationID) *Scorecard {
	values := make(map[Dimension]DimensionStatus, len(Dimensions))
	for _, d := range Dimensions {
		values[d] = DimNotReviewed
	}
	return &Scorecard{ApplicationID: appID, Values: values}
}

func (s *Scorecard) Value(d Dimension) DimensionStatus {
	if v, ok := s.Values[d]; ok {
		return v
	}
	return DimNotReviewed
}

// SetDimension records v for d. Unknown dimensions and values are rejected
// and leave the scorecard untouched.
func (s *Scorecard) SetDimension(d Dimension, v DimensionStatus, actor id.ActorID, now time.Time) error {
	if _, err := ParseDimension(string(d)); err != nil {
		return err
	}
	if _, err := ParseDimensionStatus(string(v)); err != nil {
		return err
	}
	if s.Values == nil {
		s.Values = make(map[Dimension]DimensionStatus, len(Dimensions))
	}
	s.Values[d] = v
	s.touch(actor, now)
	return nil
}

func (s *Scorecard) SetNotes(notes string, actor id.ActorID, now time.Time) {
	s.InternalNotes = notes
	s.touch(actor, now)
}

func (s *Scorecard) touch(actor id.ActorID, now time.Time) {
	s.LastInternalReviewAt = &now
	s.UpdatedBy = actor
}

// AllReady reports whether every dimension is marked ready.
func (s *Scorecard) AllReady() bool {
	for _, d := range Dimensions {
		if s.Value(d) != DimReady {
			return false
		}
	}
	return true
}
