package service_test

import (
	"certflow/internal/lifecycle/models"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
)

// =============================================================================
// Internal review scorecard
// =============================================================================
// The scorecard is advisory: edits are audited but never move the
// application.

func (s *LifecycleSuite) TestScorecardNotEditableBeforeSubmission() {
	app := s.draft()
	_, err := s.service.SetReviewDimension(s.adminCtx(), app.ID, models.DimensionFinancialDiscipline, models.DimReady)
	s.requireCode(err, dErrors.CodeInvalidTransition)

	_, err = s.service.SetReviewNotes(s.adminCtx(), app.ID, "looks fine")
	s.requireCode(err, dErrors.CodeInvalidTransition)
}

func (s *LifecycleSuite) TestScorecardEdits() {
	app := s.underReview()

	empty, err := s.service.GetScorecard(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Equal(models.DimNotReviewed, empty.Value(models.DimensionFinancialDiscipline))
	s.Nil(empty.LastInternalReviewAt)

	sc, err := s.service.SetReviewDimension(s.adminCtx(), app.ID, models.DimensionFinancialDiscipline, models.DimRequiresClarification)
	s.Require().NoError(err)
	s.Equal(models.DimRequiresClarification, sc.Value(models.DimensionFinancialDiscipline))
	s.Require().NotNil(sc.LastInternalReviewAt)
	s.True(sc.LastInternalReviewAt.Equal(s.now))
	s.Equal(s.admin, sc.UpdatedBy)

	sc, err = s.service.SetReviewNotes(s.adminCtx(), app.ID, "Chase Q4 bank statements")
	s.Require().NoError(err)
	s.Equal("Chase Q4 bank statements", sc.InternalNotes)
	s.Equal(models.DimRequiresClarification, sc.Value(models.DimensionFinancialDiscipline))

	s.Equal(models.StatusUnderReview, s.stored(app.ID).Status())
	trail := s.trail(app.ID)
	s.Equal([]audit.Action{audit.ActionScorecardDimensionSet, audit.ActionScorecardNotesSet}, trail[len(trail)-2:])

	persisted, err := s.service.GetScorecard(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Equal("Chase Q4 bank statements", persisted.InternalNotes)
}

func (s *LifecycleSuite) TestScorecardEditableAfterCertification() {
	app, _ := s.certified()
	_, err := s.service.SetReviewDimension(s.adminCtx(), app.ID, models.DimensionGovernanceControls, models.DimReady)
	s.Require().NoError(err)
	s.Equal(models.StatusCertified, s.stored(app.ID).Status())
}

func (s *LifecycleSuite) TestScorecardRejectsUnknownDimensionValues() {
	app := s.underReview()
	before := s.trail(app.ID)

	_, err := s.service.SetReviewDimension(s.adminCtx(), app.ID, models.Dimension("vibes"), models.DimReady)
	s.requireCode(err, dErrors.CodeInvalidInput)

	_, err = s.service.SetReviewDimension(s.adminCtx(), app.ID, models.DimensionBusinessModel, models.DimensionStatus("foo"))
	s.requireCode(err, dErrors.CodeInvalidInput)

	sc, err := s.service.GetScorecard(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.NotContains(sc.Values, models.Dimension("vibes"))
	s.Equal(models.DimNotReviewed, sc.Value(models.DimensionBusinessModel))
	s.Nil(sc.LastInternalReviewAt)
	s.Equal(before, s.trail(app.ID))
}
