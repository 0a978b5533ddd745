package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"certflow/internal/lifecycle/models"
	"certflow/internal/lifecycle/service"
	"certflow/internal/lifecycle/service/mocks"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
)

// =============================================================================
// Review decisions
// =============================================================================

func (s *LifecycleSuite) TestReviewActionRejectsSubmit() {
	app := s.draft()
	_, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionSubmit, "")
	s.requireCode(err, dErrors.CodeBadRequest)
	s.Equal(models.StatusDraft, s.stored(app.ID).Status())
}

func (s *LifecycleSuite) TestStartReviewTwiceIsInvalid() {
	app := s.underReview()
	before := s.trail(app.ID)

	_, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionStartReview, "")
	s.requireCode(err, dErrors.CodeInvalidTransition)
	s.Equal(before, s.trail(app.ID))
}

func (s *LifecycleSuite) TestDecisionsRequireNotes() {
	for _, action := range []models.Action{models.ActionReject, models.ActionRequestRevision} {
		s.Run(string(action), func() {
			app := s.underReview()
			before := s.trail(app.ID)

			_, err := s.service.ReviewAction(s.adminCtx(), app.ID, action, " \n\t ")
			s.requireCode(err, dErrors.CodeMissingNotes)
			s.Equal(models.StatusUnderReview, s.stored(app.ID).Status())
			s.Equal(before, s.trail(app.ID))
		})
	}
}

func (s *LifecycleSuite) TestRejectStoresNotesVerbatim() {
	app := s.underReview()
	notes := "  Trade license expired in 2025.  "

	got, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionReject, notes)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, got.Status())

	stored := s.stored(app.ID)
	rejected, ok := stored.State.(models.Rejected)
	s.Require().True(ok)
	s.Equal(notes, rejected.Reason)
	s.Equal(s.admin, rejected.ReviewerID)
	s.Equal(audit.ActionRejected, s.trail(app.ID)[len(s.trail(app.ID))-1])

	s.Run("resubmission clears the notes", func() {
		got, err := s.service.Submit(s.sme(), app.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, got.Status())
		_, hasNotes := got.RevisionNotes()
		s.False(hasNotes)
	})
}

func (s *LifecycleSuite) TestRevisionRequestedCanBeEditedAndResubmitted() {
	app := s.underReview()
	_, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionRequestRevision, "Upload the 2025 audited statements")
	s.Require().NoError(err)

	notes, ok := s.stored(app.ID).RevisionNotes()
	s.True(ok)
	s.Equal("Upload the 2025 audited statements", notes)

	_, err = s.service.AttachDocument(s.sme(), app.ID, models.DocumentRef{Type: models.DocAuditReport, StorageKey: "uploads/audit.pdf"})
	s.Require().NoError(err)
	got, err := s.service.Submit(s.sme(), app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, got.Status())
}

func (s *LifecycleSuite) TestApproveIssuesCertificate() {
	app := s.underReview()

	got, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionApprove, "")
	s.Require().NoError(err)
	s.Equal(models.StatusCertified, got.Status())
	s.False(got.ListingVisible(), "listing is opt-in")

	cert, err := s.service.CertificateForApplication(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Equal(1, cert.Version)
	s.Equal(models.CertificateActive, cert.Status)
	s.True(cert.IssuedAt.Equal(s.now))
	s.True(cert.ExpiresAt.Equal(s.now.AddDate(0, 12, 0)))
	s.Regexp(`^CERT-2026-[0-9A-F]{8}$`, cert.Number)
	s.Regexp(`^[0-9a-f]{64}$`, cert.Verification.Hash)
	s.Equal("https://registry.certflow.test/verify/"+cert.Verification.Hash, cert.Verification.URL)
	s.Nil(cert.Revocation)

	trail := s.trail(app.ID)
	s.Equal(audit.ActionApproved, trail[len(trail)-1])
	s.Len(trail, 4, "created, submitted, review started, approved")

	s.Run("certified is terminal for review actions", func() {
		for _, action := range models.ReviewActions {
			_, err := s.service.ReviewAction(s.adminCtx(), app.ID, action, "notes")
			s.requireCode(err, dErrors.CodeInvalidTransition)
		}
		_, err := s.service.Submit(s.sme(), app.ID)
		s.requireCode(err, dErrors.CodeInvalidTransition)
		s.Len(s.trail(app.ID), 4)
	})
}

func (s *LifecycleSuite) TestApproveReusesExistingCertificate() {
	app := s.underReview()
	earlier := models.NewCertificate(id.NewCertificateID(), app.ID, s.now.AddDate(-1, 0, 0),
		models.ValidityPeriod(s.now.AddDate(-1, 0, 0), 12), models.Verification{Hash: "old", URL: "x/old"})
	earlier.ApplyRevocation("superseded", s.now.AddDate(0, -1, 0))
	s.Require().NoError(s.certs.Create(context.Background(), earlier))

	_, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionApprove, "")
	s.Require().NoError(err)

	cert, err := s.service.CertificateForApplication(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Equal(earlier.ID, cert.ID)
	s.Equal(2, cert.Version)
	s.Equal(models.CertificateActive, cert.Status)
	s.Nil(cert.Revocation)
	s.NotEqual("old", cert.Verification.Hash)
}

func (s *LifecycleSuite) TestRequireReadyScorecard() {
	cfg := s.cfg
	cfg.RequireReadyScorecard = true
	s.service = s.newService(cfg)
	app := s.underReview()

	_, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionApprove, "")
	s.requireCode(err, dErrors.CodeScorecardIncomplete)
	s.Equal(models.StatusUnderReview, s.stored(app.ID).Status())

	for _, d := range models.Dimensions {
		_, err := s.service.SetReviewDimension(s.adminCtx(), app.ID, d, models.DimReady)
		s.Require().NoError(err)
	}
	got, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionApprove, "")
	s.Require().NoError(err)
	s.Equal(models.StatusCertified, got.Status())
}

func (s *LifecycleSuite) TestConcurrentDecisionsOnlyOneWins() {
	app := s.underReview()

	const rounds = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []models.Action
		refused   int
	)
	for i := 0; i < rounds; i++ {
		action := models.ActionApprove
		if i%2 == 1 {
			action = models.ActionReject
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.ReviewAction(s.adminCtx(), app.ID, action, "competing decision")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, action)
				return
			}
			if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
				refused++
			}
		}()
	}
	wg.Wait()

	s.Require().Len(successes, 1)
	s.Equal(rounds-1, refused)

	trail := s.trail(app.ID)
	s.Len(trail, 4)
	_, certErr := s.certs.FindByApplication(context.Background(), app.ID)
	if successes[0] == models.ActionApprove {
		s.NoError(certErr)
		s.Equal(models.StatusCertified, s.stored(app.ID).Status())
	} else {
		s.Error(certErr)
		s.Equal(models.StatusRejected, s.stored(app.ID).Status())
	}
}

// =============================================================================
// Notifications
// =============================================================================
// The notifier sees committed changes only, once each, after the audit entry
// is in place.

func (s *LifecycleSuite) TestNotifierReceivesCommittedChanges() {
	ctrl := gomock.NewController(s.T())
	notifier := mocks.NewMockNotifier(ctrl)
	s.service = s.newService(s.cfg, service.WithNotifier(notifier))

	app := s.draft()

	gomock.InOrder(
		notifier.EXPECT().StatusChanged(gomock.Any(), gomock.Any()).Do(
			func(_ context.Context, change models.StatusChange) {
				s.Equal(app.ID, change.ApplicationID)
				s.Equal(models.StatusSubmitted, change.To)
				s.Equal(id.ActorID(s.account), change.ActorID)
				s.Contains(s.trail(app.ID), audit.ActionSubmitted)
			}),
		notifier.EXPECT().StatusChanged(gomock.Any(), gomock.Any()).Do(
			func(_ context.Context, change models.StatusChange) {
				s.Equal(models.StatusUnderReview, change.To)
				s.Equal(s.admin, change.ActorID)
			}),
		notifier.EXPECT().StatusChanged(gomock.Any(), gomock.Any()).Do(
			func(_ context.Context, change models.StatusChange) {
				s.Equal(models.ActionRequestRevision, change.Action)
				s.Equal("Add shareholder register", change.Notes)
			}),
	)

	_, err := s.service.Submit(s.sme(), app.ID)
	s.Require().NoError(err)
	_, err = s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionStartReview, "")
	s.Require().NoError(err)

	// Refused guards notify nobody.
	_, err = s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionReject, "")
	s.Require().Error(err)

	_, err = s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionRequestRevision, "Add shareholder register")
	s.Require().NoError(err)
}

func (s *LifecycleSuite) TestCancelledContextNeverReachesTheStore() {
	app := s.underReview()
	ctx, cancel := context.WithCancel(s.adminCtx())
	cancel()

	_, err := s.service.ReviewAction(ctx, app.ID, models.ActionApprove, "")
	s.requireCode(err, dErrors.CodeTimeout)
	s.Equal(models.StatusUnderReview, s.stored(app.ID).Status())
}

func (s *LifecycleSuite) TestUnknownApplication() {
	_, err := s.service.ReviewAction(s.adminCtx(), id.ApplicationID(uuid.New()), models.ActionStartReview, "")
	s.requireCode(err, dErrors.CodeNotFound)
}

// =============================================================================
// Sharded transaction boundary
// =============================================================================

func (s *LifecycleSuite) TestShardedTxSerializesOneApplication() {
	tx := service.NewShardedTx(time.Second)
	appID := id.NewApplicationID()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.RunInTx(context.Background(), appID, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal(1, maxSeen)
}

func (s *LifecycleSuite) TestShardedTxAppliesDefaultDeadline() {
	tx := service.NewShardedTx(0)
	err := tx.RunInTx(context.Background(), id.NewApplicationID(), func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		s.True(ok)
		s.WithinDuration(time.Now().Add(5*time.Second), deadline, time.Second)
		return nil
	})
	s.NoError(err)
}
