package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/platform/sentinel"
	"certflow/pkg/requestcontext"
)

var auditActions = map[models.Action]audit.Action{
	models.ActionSubmit:          audit.ActionSubmitted,
	models.ActionStartReview:     audit.ActionReviewStarted,
	models.ActionApprove:         audit.ActionApproved,
	models.ActionReject:          audit.ActionRejected,
	models.ActionRequestRevision: audit.ActionRevisionRequested,
}

// ReviewAction applies an admin decision: start_review, approve, reject or
// request_revision. Approval issues the certificate in the same transaction.
func (s *Service) ReviewAction(ctx context.Context, appID id.ApplicationID, action models.Action, notes string) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "ReviewAction")
	defer func() { endSpan(span, err) }()
	start := time.Now()

	if action == models.ActionSubmit {
		return nil, dErrors.New(dErrors.CodeBadRequest, "submit is performed by the applicant, not as a review action")
	}

	var (
		change   *models.StatusChange
		approved *approval
	)
	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err = s.loadApplication(txCtx, appID)
		if err != nil {
			return err
		}
		if _, err := models.NextStatus(app.Status(), action); err != nil {
			return err
		}
		if action == models.ActionApprove && s.cfg.RequireReadyScorecard {
			if err := s.requireReadyScorecard(txCtx, appID); err != nil {
				return err
			}
		}

		if action == models.ActionApprove {
			approved, err = s.approve(txCtx, app)
			if err != nil {
				return err
			}
			change = approved.change
			return nil
		}
		change, err = s.transition(txCtx, app, action, notes)
		return err
	})
	if err != nil {
		s.rejected(ctx, string(action), appID, err)
		return nil, err
	}

	s.observeTransition(change, start)
	if approved != nil {
		s.refreshCache(ctx, approved.staleHash, nil)
		s.logger.InfoContext(ctx, "certificate issued",
			"application_id", appID,
			"certificate_number", approved.cert.Number,
			"version", approved.cert.Version,
		)
	}
	s.notify(ctx, change)
	return app, nil
}

// transition moves app through the table, persists it and appends the audit
// entry. Guards fail before any write.
func (s *Service) transition(ctx context.Context, app *models.Application, action models.Action, notes string) (*models.StatusChange, error) {
	from := app.Status()
	actor := requestcontext.ActorID(ctx)
	now := requestcontext.Now(ctx)
	to, err := app.Transition(action, models.TransitionInput{Notes: notes, Actor: actor, Now: now})
	if err != nil {
		return nil, err
	}
	if err := s.applications.Update(ctx, app); err != nil {
		return nil, translate(err, "application")
	}
	if err := s.emit(ctx, app.ID, auditActions[action], describeTransition(action, notes)); err != nil {
		return nil, err
	}
	return &models.StatusChange{
		ApplicationID: app.ID,
		AccountID:     app.AccountID,
		Action:        action,
		From:          from,
		To:            to,
		ActorID:       actor,
		Notes:         notes,
		OccurredAt:    now,
	}, nil
}

type approval struct {
	change    *models.StatusChange
	cert      *models.Certificate
	staleHash string
}

// approve certifies the application and issues its certificate. If the
// application already holds a certificate from an earlier certification,
// that row is reissued instead of creating a second one.
func (s *Service) approve(ctx context.Context, app *models.Application) (*approval, error) {
	from := app.Status()
	actor := requestcontext.ActorID(ctx)
	now := requestcontext.Now(ctx)
	if _, err := app.Transition(models.ActionApprove, models.TransitionInput{Actor: actor, Now: now}); err != nil {
		return nil, err
	}

	verification, err := s.newVerification()
	if err != nil {
		return nil, err
	}
	validity := models.ValidityPeriod(now, s.cfg.CertificateValidityMonths)

	cert, err := s.certificates.FindByApplication(ctx, app.ID)
	reissue := err == nil
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translate(err, "certificate")
	}

	if err := s.applications.Update(ctx, app); err != nil {
		return nil, translate(err, "application")
	}
	staleHash := ""
	if reissue {
		staleHash = cert.Verification.Hash
		cert.Reissue(now, validity, verification)
		err = s.certificates.Update(ctx, cert)
	} else {
		cert = models.NewCertificate(id.NewCertificateID(), app.ID, now, validity, verification)
		err = s.certificates.Create(ctx, cert)
	}
	if err != nil {
		return nil, translate(err, "certificate")
	}

	description := fmt.Sprintf("Application approved; certificate %s version %d issued, valid until %s",
		cert.Number, cert.Version, cert.ExpiresAt.Format(time.DateOnly))
	if err := s.emit(ctx, app.ID, audit.ActionApproved, description); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementCertificates("issued")
	}
	return &approval{
		change: &models.StatusChange{
			ApplicationID: app.ID,
			AccountID:     app.AccountID,
			Action:        models.ActionApprove,
			From:          from,
			To:            models.StatusCertified,
			ActorID:       actor,
			OccurredAt:    now,
		},
		cert:      cert,
		staleHash: staleHash,
	}, nil
}

func (s *Service) requireReadyScorecard(ctx context.Context, appID id.ApplicationID) error {
	sc, err := s.scorecard(ctx, appID)
	if err != nil {
		return err
	}
	if !sc.AllReady() {
		return dErrors.New(dErrors.CodeScorecardIncomplete, "mark every scorecard dimension ready before approving")
	}
	return nil
}

func describeTransition(action models.Action, notes string) string {
	switch action {
	case models.ActionSubmit:
		return "Application submitted for review"
	case models.ActionStartReview:
		return "Review started"
	case models.ActionReject:
		return "Application rejected: " + notes
	case models.ActionRequestRevision:
		return "Revision requested: " + notes
	}
	return "Application " + string(action)
}

func (s *Service) observeTransition(change *models.StatusChange, start time.Time) {
	if s.metrics == nil || change == nil {
		return
	}
	s.metrics.IncrementTransition(string(change.Action), string(change.To))
	s.metrics.ObserveTransition(start)
}
