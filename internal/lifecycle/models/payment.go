package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// PaymentStatus is the status of a certification fee request. An
// application without any request is "not requested".
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown payment status: "+s)
}

// IsLive reports whether a request blocks a new one for the same application.
func (s PaymentStatus) IsLive() bool {
	return s == PaymentPending || s == PaymentProcessing
}

// ProcessorEvent is a status report from the payment processor.
type ProcessorEvent string

const (
	EventProcessing ProcessorEvent = "processing"
	EventCompleted  ProcessorEvent = "completed"
	EventFailed     ProcessorEvent = "failed"
	EventRefunded   ProcessorEvent = "refunded"
)

// processorTransitions lists which statuses each processor event may leave.
var processorTransitions = map[ProcessorEvent]struct {
	from []PaymentStatus
	to   PaymentStatus
}{
	EventProcessing: {[]PaymentStatus{PaymentPending}, PaymentProcessing},
	EventCompleted:  {[]PaymentStatus{PaymentPending, PaymentProcessing}, PaymentCompleted},
	EventFailed:     {[]PaymentStatus{PaymentPending, PaymentProcessing}, PaymentFailed},
	EventRefunded:   {[]PaymentStatus{PaymentCompleted}, PaymentRefunded},
}

func ParseProcessorEvent(s string) (ProcessorEvent, error) {
	ev := ProcessorEvent(s)
	if _, ok := processorTransitions[ev]; !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown payment event: "+s)
	}
	return ev, nil
}

// PaymentRequest is a certification fee request raised after certification.
type PaymentRequest struct {
	ID            id.PaymentID
	ApplicationID id.ApplicationID
	AccountID     id.AccountID
	Status        PaymentStatus
	Amount        decimal.Decimal
	Currency      string
	InvoiceNumber string
	RequestedAt   time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	UpdatedAt     time.Time
}

// InvoiceNumber formats <prefix>-<yyyymmdd>-<first 6 hex digits of the id>.
func InvoiceNumber(prefix string, paymentID id.PaymentID, now time.Time) string {
	hex := strings.ReplaceAll(paymentID.String(), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), strings.ToUpper(hex[:6]))
}

// NewPaymentRequest creates a pending request.
func NewPaymentRequest(paymentID id.PaymentID, app *Application, amount decimal.Decimal, currency, invoicePrefix string, now time.Time) (*PaymentRequest, error) {
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment amount must be positive")
	}
	if strings.TrimSpace(currency) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment currency is required")
	}
	return &PaymentRequest{
		ID:            paymentID,
		ApplicationID: app.ID,
		AccountID:     app.AccountID,
		Status:        PaymentPending,
		Amount:        amount,
		Currency:      strings.ToUpper(currency),
		InvoiceNumber: InvoiceNumber(invoicePrefix, paymentID, now),
		RequestedAt:   now,
		UpdatedAt:     now,
	}, nil
}

// CanCancel allows cancellation only before the processor picked it up.
func (p *PaymentRequest) CanCancel() error {
	if p.Status != PaymentPending {
		return dErrors.New(dErrors.CodeNotCancelable, "only pending payment requests can be cancelled (current: "+string(p.Status)+")")
	}
	return nil
}

// ApplyCancel cancels the request, keeping the record. Call CanCancel first.
func (p *PaymentRequest) ApplyCancel(now time.Time) {
	p.Status = PaymentCancelled
	p.CancelledAt = &now
	p.UpdatedAt = now
}

// ApplyProcessorEvent advances the request per a processor report.
func (p *PaymentRequest) ApplyProcessorEvent(ev ProcessorEvent, now time.Time) error {
	rule, ok := processorTransitions[ev]
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "unknown payment event: "+string(ev))
	}
	allowed := false
	for _, from := range rule.from {
		if p.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"payment in status "+string(p.Status)+" cannot move to "+string(rule.to))
	}
	p.Status = rule.to
	if rule.to == PaymentCompleted {
		p.PaidAt = &now
	}
	p.UpdatedAt = now
	return nil
}
