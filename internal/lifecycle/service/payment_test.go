package service_test

import (
	"context"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/platform/sentinel"
)

// =============================================================================
// Payment requests
// =============================================================================

func (s *LifecycleSuite) TestRequestPaymentRequiresCertification() {
	cases := []struct {
		name  string
		setup func() *models.Application
	}{
		{"draft", s.draft},
		{"submitted", func() *models.Application {
			app := s.draft()
			app, err := s.service.Submit(s.sme(), app.ID)
			s.Require().NoError(err)
			return app
		}},
		{"under review", s.underReview},
		{"rejected", func() *models.Application {
			app := s.underReview()
			app, err := s.service.ReviewAction(s.adminCtx(), app.ID, models.ActionReject, "Trade licence has lapsed")
			s.Require().NoError(err)
			return app
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			app := tc.setup()
			before := s.trail(app.ID)

			_, err := s.service.RequestPayment(s.adminCtx(), app.ID)
			s.requireCode(err, dErrors.CodeNotCertified)
			s.Equal(before, s.trail(app.ID))

			payments, err := s.service.ListPayments(s.adminCtx(), app.ID)
			s.Require().NoError(err)
			s.Empty(payments)
		})
	}
}

func (s *LifecycleSuite) TestRequestPayment() {
	app, _ := s.certified()

	p, err := s.service.RequestPayment(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Equal(models.PaymentPending, p.Status)
	s.Equal("1500.00", p.Amount.StringFixed(2))
	s.Equal("AED", p.Currency)
	s.Equal(app.AccountID, p.AccountID)
	s.Regexp(`^INV-20260202-[0-9A-F]{6}$`, p.InvoiceNumber)
	trail := s.trail(app.ID)
	s.Equal(audit.ActionPaymentRequested, trail[len(trail)-1])

	s.Run("a second live request is a duplicate", func() {
		_, err := s.service.RequestPayment(s.adminCtx(), app.ID)
		s.requireCode(err, dErrors.CodeDuplicateRequest)
		s.Equal(dErrors.CategoryConflict, dErrors.CategoryOf(err))
	})

	s.Run("processing still counts as live", func() {
		_, err := s.service.ApplyProcessorEvent(s.adminCtx(), p.ID, models.EventProcessing)
		s.Require().NoError(err)
		_, err = s.service.RequestPayment(s.adminCtx(), app.ID)
		s.requireCode(err, dErrors.CodeDuplicateRequest)
	})
}

func (s *LifecycleSuite) TestCancelPayment() {
	app, _ := s.certified()
	p, err := s.service.RequestPayment(s.adminCtx(), app.ID)
	s.Require().NoError(err)

	cancelled, err := s.service.CancelPayment(s.adminCtx(), p.ID)
	s.Require().NoError(err)
	s.Equal(models.PaymentCancelled, cancelled.Status)
	s.Require().NotNil(cancelled.CancelledAt)

	kept, err := s.service.ListPayments(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	s.Len(kept, 1, "cancelled requests are retained")

	s.Run("cancelling twice is refused", func() {
		_, err := s.service.CancelPayment(s.adminCtx(), p.ID)
		s.requireCode(err, dErrors.CodeNotCancelable)
	})

	s.Run("a new request may follow a cancellation", func() {
		next, err := s.service.RequestPayment(s.adminCtx(), app.ID)
		s.Require().NoError(err)
		s.NotEqual(p.ID, next.ID)
	})
}

func (s *LifecycleSuite) TestCancelFailedPayment() {
	app, _ := s.certified()
	p, err := s.service.RequestPayment(s.adminCtx(), app.ID)
	s.Require().NoError(err)
	failed, err := s.service.ApplyProcessorEvent(s.adminCtx(), p.ID, models.EventFailed)
	s.Require().NoError(err)
	s.Equal(models.PaymentFailed, failed.Status)
	before := s.trail(app.ID)

	_, err = s.service.CancelPayment(s.adminCtx(), p.ID)
	s.requireCode(err, dErrors.CodeNotCancelable)
	s.Equal(before, s.trail(app.ID))

	got, err := s.service.GetPayment(s.adminCtx(), p.ID)
	s.Require().NoError(err)
	s.Equal(models.PaymentFailed, got.Status)
	s.Nil(got.CancelledAt)
}

func (s *LifecycleSuite) TestProcessorEvents() {
	app, _ := s.certified()
	p, err := s.service.RequestPayment(s.adminCtx(), app.ID)
	s.Require().NoError(err)

	got, err := s.service.ApplyProcessorEvent(s.adminCtx(), p.ID, models.EventProcessing)
	s.Require().NoError(err)
	s.Equal(models.PaymentProcessing, got.Status)

	_, err = s.service.CancelPayment(s.adminCtx(), p.ID)
	s.requireCode(err, dErrors.CodeNotCancelable)

	got, err = s.service.ApplyProcessorEvent(s.adminCtx(), p.ID, models.EventCompleted)
	s.Require().NoError(err)
	s.Equal(models.PaymentCompleted, got.Status)
	s.Require().NotNil(got.PaidAt)
	s.True(got.PaidAt.Equal(s.now))

	_, err = s.service.ApplyProcessorEvent(s.adminCtx(), p.ID, models.EventProcessing)
	s.requireCode(err, dErrors.CodeInvalidTransition)

	got, err = s.service.ApplyProcessorEvent(s.adminCtx(), p.ID, models.EventRefunded)
	s.Require().NoError(err)
	s.Equal(models.PaymentRefunded, got.Status)

	updates := 0
	for _, a := range s.trail(app.ID) {
		if a == audit.ActionPaymentUpdated {
			updates++
		}
	}
	s.Equal(3, updates)
}

func (s *LifecycleSuite) TestRevocationDoesNotTouchPayments() {
	app, cert := s.certified()
	p, err := s.service.RequestPayment(s.adminCtx(), app.ID)
	s.Require().NoError(err)

	_, err = s.service.RevokeCertificate(s.adminCtx(), cert.ID, "")
	s.Require().NoError(err)

	got, err := s.service.GetPayment(s.adminCtx(), p.ID)
	s.Require().NoError(err)
	s.Equal(models.PaymentPending, got.Status)
}

// The store's uniqueness check is the last line: a request created behind
// the service's back still turns the next one into a duplicate.
func (s *LifecycleSuite) TestStoreUniquenessSurfacesAsDuplicate() {
	app, _ := s.certified()
	stored := s.stored(app.ID)
	p, err := models.NewPaymentRequest(id.NewPaymentID(), stored, s.cfg.PaymentFee, "AED", "INV", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.payments.Create(context.Background(), p))

	again, err := models.NewPaymentRequest(id.NewPaymentID(), stored, s.cfg.PaymentFee, "AED", "INV", s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.payments.Create(context.Background(), again), sentinel.ErrConflict)

	_, err = s.service.RequestPayment(s.adminCtx(), app.ID)
	s.requireCode(err, dErrors.CodeDuplicateRequest)
}
