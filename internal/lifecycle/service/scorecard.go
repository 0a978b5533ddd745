package service

import (
	"context"
	"errors"
	"fmt"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/platform/sentinel"
	"certflow/pkg/requestcontext"
)

// GetScorecard returns the internal review scorecard, with every dimension
// not reviewed when nothing was recorded yet.
func (s *Service) GetScorecard(ctx context.Context, appID id.ApplicationID) (*models.Scorecard, error) {
	if _, err := s.loadApplication(ctx, appID); err != nil {
		return nil, err
	}
	return s.scorecard(ctx, appID)
}

func (s *Service) scorecard(ctx context.Context, appID id.ApplicationID) (*models.Scorecard, error) {
	sc, err := s.scorecards.FindByApplication(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewScorecard(appID), nil
	}
	if err != nil {
		return nil, translate(err, "scorecard")
	}
	return sc, nil
}

// SetReviewDimension records one scorecard dimension. It never changes the
// application's status.
func (s *Service) SetReviewDimension(ctx context.Context, appID id.ApplicationID, dimension models.Dimension, value models.DimensionStatus) (*models.Scorecard, error) {
	return s.editScorecard(ctx, "SetReviewDimension", appID, audit.ActionScorecardDimensionSet,
		func(txCtx context.Context, sc *models.Scorecard, actor id.ActorID) (string, error) {
			if err := sc.SetDimension(dimension, value, actor, requestcontext.Now(txCtx)); err != nil {
				return "", err
			}
			return fmt.Sprintf("Scorecard %s set to %s", dimension, value), nil
		})
}

// SetReviewNotes replaces the internal reviewer notes.
func (s *Service) SetReviewNotes(ctx context.Context, appID id.ApplicationID, notes string) (*models.Scorecard, error) {
	return s.editScorecard(ctx, "SetReviewNotes", appID, audit.ActionScorecardNotesSet,
		func(txCtx context.Context, sc *models.Scorecard, actor id.ActorID) (string, error) {
			sc.SetNotes(notes, actor, requestcontext.Now(txCtx))
			return "Scorecard notes updated", nil
		})
}

type scorecardEdit func(txCtx context.Context, sc *models.Scorecard, actor id.ActorID) (string, error)

func (s *Service) editScorecard(ctx context.Context, op string, appID id.ApplicationID, action audit.Action, edit scorecardEdit) (sc *models.Scorecard, err error) {
	ctx, span := s.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err := s.loadApplication(txCtx, appID)
		if err != nil {
			return err
		}
		if !app.ScorecardEditable() {
			return dErrors.New(dErrors.CodeInvalidTransition,
				"scorecard cannot be edited while the application is "+string(app.Status()))
		}
		sc, err = s.scorecard(txCtx, appID)
		if err != nil {
			return err
		}
		description, err := edit(txCtx, sc, requestcontext.ActorID(txCtx))
		if err != nil {
			return err
		}
		if err := s.scorecards.Save(txCtx, sc); err != nil {
			return translate(err, "scorecard")
		}
		return s.emit(txCtx, appID, action, description)
	})
	if err != nil {
		s.rejected(ctx, op, appID, err)
		return nil, err
	}
	return sc, nil
}
