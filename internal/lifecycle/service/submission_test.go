package service_test

import (
	"context"

	"github.com/google/uuid"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/requestcontext"
	"certflow/pkg/testutil"
)

// =============================================================================
// Draft editing and submission
// =============================================================================

func (s *LifecycleSuite) TestCreateApplication() {
	s.Run("opens an audited draft owned by the caller", func() {
		app, err := s.service.CreateApplication(s.sme(), testutil.CompleteProfile())
		s.Require().NoError(err)
		s.Equal(models.StatusDraft, app.Status())
		s.Equal(s.account, app.AccountID)
		s.Nil(app.SubmittedAt)
		s.Equal([]audit.Action{audit.ActionApplicationCreated}, s.trail(app.ID))
	})

	s.Run("requires an authenticated account", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now)
		_, err := s.service.CreateApplication(ctx, testutil.CompleteProfile())
		s.requireCode(err, dErrors.CodeInvalidInput)
	})
}

func (s *LifecycleSuite) TestOwnership() {
	app := s.draft()
	stranger := testutil.ActorContext(context.Background(), id.ActorID(uuid.New()), requestcontext.RoleSME, s.now)

	_, err := s.service.GetApplication(stranger, app.ID)
	s.requireCode(err, dErrors.CodeForbidden)

	_, err = s.service.UpdateProfile(stranger, app.ID, testutil.CompleteProfile())
	s.requireCode(err, dErrors.CodeForbidden)

	_, err = s.service.Submit(stranger, app.ID)
	s.requireCode(err, dErrors.CodeForbidden)
	s.Equal(models.StatusDraft, s.stored(app.ID).Status())

	got, err := s.service.GetApplication(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
}

func (s *LifecycleSuite) TestEditingIsLimitedToEditableStatuses() {
	app := s.draft()
	_, err := s.service.Submit(s.sme(), app.ID)
	s.Require().NoError(err)

	_, err = s.service.UpdateProfile(s.sme(), app.ID, testutil.CompleteProfile())
	s.requireCode(err, dErrors.CodeInvalidTransition)

	_, err = s.service.AttachDocument(s.sme(), app.ID, models.DocumentRef{Type: models.DocBusinessPlan, StorageKey: "k"})
	s.requireCode(err, dErrors.CodeInvalidTransition)
}

func (s *LifecycleSuite) TestAttachDocumentValidates() {
	app := s.draft()
	_, err := s.service.AttachDocument(s.sme(), app.ID, models.DocumentRef{Type: models.DocAuditReport, StorageKey: "   "})
	s.requireCode(err, dErrors.CodeInvalidInput)

	_, err = s.service.AttachDocument(s.sme(), app.ID, models.DocumentRef{Type: "passport_scan", StorageKey: "k"})
	s.Require().Error(err)
}

func (s *LifecycleSuite) TestSubmitGuards() {
	s.Run("missing required documents block before completeness", func() {
		profile := testutil.CompleteProfile()
		profile.Compliance.DeclarationAccepted = false
		app, err := s.service.CreateApplication(s.sme(), profile)
		s.Require().NoError(err)

		_, err = s.service.Submit(s.sme(), app.ID)
		s.requireCode(err, dErrors.CodeMissingDocuments)
		de, _ := dErrors.From(err)
		s.Contains(de.Message, string(models.DocTradeLicense))
		s.Equal(models.StatusDraft, s.stored(app.ID).Status())
		s.Equal([]audit.Action{audit.ActionApplicationCreated}, s.trail(app.ID))
	})

	s.Run("incomplete profile blocks once documents are present", func() {
		profile := testutil.CompleteProfile()
		profile.Compliance.DeclarationAccepted = false
		app, err := s.service.CreateApplication(s.sme(), profile)
		s.Require().NoError(err)
		for _, doc := range testutil.RequiredDocuments(s.now) {
			_, err = s.service.AttachDocument(s.sme(), app.ID, doc)
			s.Require().NoError(err)
		}

		_, err = s.service.Submit(s.sme(), app.ID)
		s.requireCode(err, dErrors.CodeIncompleteProfile)
		de, _ := dErrors.From(err)
		s.Contains(de.Message, string(models.SectionCompliance))
		s.Equal(models.StatusDraft, s.stored(app.ID).Status())
		s.Equal([]audit.Action{audit.ActionApplicationCreated}, s.trail(app.ID))

		readiness, err := s.service.Readiness(s.sme(), app.ID)
		s.Require().NoError(err)
		s.False(readiness.Ready)
		s.Empty(readiness.MissingDocuments)
		s.Less(readiness.Completeness.Percent, 100)
	})

	s.Run("lower threshold admits a partly complete profile", func() {
		cfg := s.cfg
		cfg.CompletenessThreshold = 80
		svc := s.newService(cfg)

		profile := testutil.CompleteProfile()
		profile.Compliance.DeclarationAccepted = false
		app, err := svc.CreateApplication(s.sme(), profile)
		s.Require().NoError(err)
		for _, doc := range testutil.RequiredDocuments(s.now) {
			_, err = svc.AttachDocument(s.sme(), app.ID, doc)
			s.Require().NoError(err)
		}
		app, err = svc.Submit(s.sme(), app.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, app.Status())
	})
}

func (s *LifecycleSuite) TestSubmit() {
	app := s.draft()

	got, err := s.service.Submit(s.sme(), app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, got.Status())
	s.Require().NotNil(got.SubmittedAt)
	s.True(got.SubmittedAt.Equal(s.now))
	s.Equal(models.StatusSubmitted, s.stored(app.ID).Status())
	s.Equal([]audit.Action{audit.ActionApplicationCreated, audit.ActionSubmitted}, s.trail(app.ID))

	changes := s.notifier.all()
	s.Require().Len(changes, 1)
	s.Equal(models.ActionSubmit, changes[0].Action)
	s.Equal(models.StatusDraft, changes[0].From)
	s.Equal(models.StatusSubmitted, changes[0].To)

	s.Run("submitting twice is an invalid transition", func() {
		_, err := s.service.Submit(s.sme(), app.ID)
		s.requireCode(err, dErrors.CodeInvalidTransition)
		s.Len(s.trail(app.ID), 2)
		s.Len(s.notifier.all(), 1)
	})
}

func (s *LifecycleSuite) TestListAudit() {
	app := s.underReview()

	entries, err := s.service.ListAudit(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(audit.ActionApplicationCreated, entries[0].Action)
	s.Equal(audit.ActionSubmitted, entries[1].Action)
	s.Equal(id.ActorID(s.account), entries[1].ActorID)
	s.Equal(audit.ActionReviewStarted, entries[2].Action)
	s.Equal(s.admin, entries[2].ActorID)
	for i := 1; i < len(entries); i++ {
		s.False(entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}

	_, err = s.service.ListAudit(s.adminCtx(), id.NewApplicationID())
	s.requireCode(err, dErrors.CodeNotFound)
}
