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

// RequestPayment raises the certification fee for a certified application.
// At most one pending or processing request may exist per application.
func (s *Service) RequestPayment(ctx context.Context, appID id.ApplicationID) (payment *models.PaymentRequest, err error) {
	ctx, span := s.startSpan(ctx, "RequestPayment")
	defer func() { endSpan(span, err) }()

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err := s.loadApplication(txCtx, appID)
		if err != nil {
			return err
		}
		if app.Status() != models.StatusCertified {
			return dErrors.New(dErrors.CodeNotCertified,
				"payment can only be requested for a certified application (current: "+string(app.Status())+")")
		}

		live, err := s.payments.FindLiveByApplication(txCtx, appID)
		switch {
		case err == nil:
			return duplicatePayment(live)
		case !errors.Is(err, sentinel.ErrNotFound):
			return translate(err, "payment request")
		}

		payment, err = models.NewPaymentRequest(id.NewPaymentID(), app,
			s.cfg.PaymentFee, s.cfg.PaymentCurrency, s.cfg.InvoicePrefix, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.payments.Create(txCtx, payment); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeDuplicateRequest, "a payment request is already open for this application")
			}
			return translate(err, "payment request")
		}
		return s.emit(txCtx, appID, audit.ActionPaymentRequested,
			fmt.Sprintf("Payment %s requested: %s %s", payment.InvoiceNumber, payment.Amount.StringFixed(2), payment.Currency))
	})
	if err != nil {
		s.rejected(ctx, "request_payment", appID, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementPayments(string(payment.Status))
	}
	return payment, nil
}

func duplicatePayment(live *models.PaymentRequest) error {
	return dErrors.New(dErrors.CodeDuplicateRequest,
		fmt.Sprintf("payment request %s is already %s", live.InvoiceNumber, live.Status))
}

// CancelPayment cancels a pending request. The record is kept.
func (s *Service) CancelPayment(ctx context.Context, paymentID id.PaymentID) (payment *models.PaymentRequest, err error) {
	ctx, span := s.startSpan(ctx, "CancelPayment")
	defer func() { endSpan(span, err) }()

	payment, err = s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	appID := payment.ApplicationID

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		payment, err = s.GetPayment(txCtx, paymentID)
		if err != nil {
			return err
		}
		if err := payment.CanCancel(); err != nil {
			return err
		}
		payment.ApplyCancel(requestcontext.Now(txCtx))
		if err := s.payments.Update(txCtx, payment); err != nil {
			return translate(err, "payment request")
		}
		return s.emit(txCtx, appID, audit.ActionPaymentCancelled,
			fmt.Sprintf("Payment %s cancelled", payment.InvoiceNumber))
	})
	if err != nil {
		s.rejected(ctx, "cancel_payment", appID, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementPayments(string(payment.Status))
	}
	return payment, nil
}

// ApplyProcessorEvent records a status report from the payment processor.
func (s *Service) ApplyProcessorEvent(ctx context.Context, paymentID id.PaymentID, event models.ProcessorEvent) (payment *models.PaymentRequest, err error) {
	ctx, span := s.startSpan(ctx, "ApplyProcessorEvent")
	defer func() { endSpan(span, err) }()

	payment, err = s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	appID := payment.ApplicationID

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		payment, err = s.GetPayment(txCtx, paymentID)
		if err != nil {
			return err
		}
		from := payment.Status
		if err := payment.ApplyProcessorEvent(event, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.payments.Update(txCtx, payment); err != nil {
			return translate(err, "payment request")
		}
		return s.emit(txCtx, appID, audit.ActionPaymentUpdated,
			fmt.Sprintf("Payment %s moved from %s to %s", payment.InvoiceNumber, from, payment.Status))
	})
	if err != nil {
		s.rejected(ctx, "payment_event", appID, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementPayments(string(payment.Status))
	}
	return payment, nil
}

// GetPayment returns a payment request by id.
func (s *Service) GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.PaymentRequest, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, translate(err, "payment request")
	}
	return p, nil
}

// ListPayments returns every payment request of an application, oldest first.
func (s *Service) ListPayments(ctx context.Context, appID id.ApplicationID) ([]*models.PaymentRequest, error) {
	if _, err := s.GetApplication(ctx, appID); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByApplication(ctx, appID)
	if err != nil {
		return nil, translate(err, "payment requests")
	}
	return payments, nil
}
