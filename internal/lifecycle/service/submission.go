package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/requestcontext"
)

// Readiness summarizes whether an application may be submitted.
type Readiness struct {
	Completeness     models.Completeness   `json:"completeness"`
	Threshold        int                   `json:"threshold"`
	MissingDocuments []models.DocumentType `json:"missing_documents"`
	Ready            bool                  `json:"ready"`
}

// requireOwner lets SME actors touch only their own applications. Admins and
// internal callers (no role) pass.
func requireOwner(ctx context.Context, app *models.Application) error {
	if requestcontext.ActorRole(ctx) != requestcontext.RoleSME {
		return nil
	}
	if id.AccountID(requestcontext.ActorID(ctx)) != app.AccountID {
		return dErrors.New(dErrors.CodeForbidden, "application belongs to another account")
	}
	return nil
}

// CreateApplication opens a draft for the calling SME account.
func (s *Service) CreateApplication(ctx context.Context, profile models.Profile) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "CreateApplication")
	defer func() { endSpan(span, err) }()

	accountID := id.AccountID(requestcontext.ActorID(ctx))
	app, err = models.NewApplication(id.NewApplicationID(), accountID, profile, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, app.ID, func(txCtx context.Context) error {
		if err := s.applications.Create(txCtx, app); err != nil {
			return translate(err, "application")
		}
		return s.emit(txCtx, app.ID, audit.ActionApplicationCreated, "Application draft created")
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "application created",
		"application_id", app.ID,
		"account_id", app.AccountID,
	)
	return app, nil
}

// GetApplication returns an application visible to the caller.
func (s *Service) GetApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// UpdateProfile replaces the profile of an editable application.
func (s *Service) UpdateProfile(ctx context.Context, appID id.ApplicationID, profile models.Profile) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "UpdateProfile")
	defer func() { endSpan(span, err) }()

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err = s.editable(txCtx, appID)
		if err != nil {
			return err
		}
		app.UpdateProfile(profile, requestcontext.Now(txCtx))
		return translate(s.applications.Update(txCtx, app), "application")
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// AttachDocument records a document reference on an editable application.
func (s *Service) AttachDocument(ctx context.Context, appID id.ApplicationID, doc models.DocumentRef) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "AttachDocument")
	defer func() { endSpan(span, err) }()

	doc.StorageKey = strings.TrimSpace(doc.StorageKey)
	doc.FileName = strings.TrimSpace(doc.FileName)
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err = s.editable(txCtx, appID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(txCtx)
		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = now
		}
		app.AttachDocument(doc, now)
		return translate(s.applications.Update(txCtx, app), "application")
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Service) editable(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(ctx, app); err != nil {
		return nil, err
	}
	if err := app.CanEdit(); err != nil {
		return nil, err
	}
	return app, nil
}

// Readiness reports completeness and missing documents without changing state.
func (s *Service) Readiness(ctx context.Context, appID id.ApplicationID) (*Readiness, error) {
	app, err := s.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	return s.readiness(ctx, app)
}

func (s *Service) readiness(ctx context.Context, app *models.Application) (*Readiness, error) {
	docs, err := s.documents.Documents(ctx, app)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
	}
	scored := *app
	scored.Documents = docs
	r := &Readiness{
		Completeness:     s.completeness.Completeness(&scored),
		Threshold:        s.cfg.CompletenessThreshold,
		MissingDocuments: models.MissingRequiredDocuments(docs),
	}
	r.Ready = len(r.MissingDocuments) == 0 && r.Completeness.Percent >= r.Threshold
	return r, nil
}

// Submit sends a draft, rejected or revision-requested application for
// review. Required documents are checked first so the caller gets the most
// specific fix; the completeness threshold follows.
func (s *Service) Submit(ctx context.Context, appID id.ApplicationID) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "Submit")
	defer func() { endSpan(span, err) }()
	start := time.Now()

	var change *models.StatusChange
	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err = s.loadApplication(txCtx, appID)
		if err != nil {
			return err
		}
		if err := requireOwner(txCtx, app); err != nil {
			return err
		}
		if _, err := models.NextStatus(app.Status(), models.ActionSubmit); err != nil {
			return err
		}

		ready, err := s.readiness(txCtx, app)
		if err != nil {
			return err
		}
		if len(ready.MissingDocuments) > 0 {
			return dErrors.New(dErrors.CodeMissingDocuments,
				"upload the required documents before submitting: "+joinTypes(ready.MissingDocuments))
		}
		if ready.Completeness.Percent < ready.Threshold {
			return dErrors.New(dErrors.CodeIncompleteProfile,
				fmt.Sprintf("profile is %d%% complete, %d%% is required; complete: %s",
					ready.Completeness.Percent, ready.Threshold, joinSections(ready.Completeness.Incomplete())))
		}

		change, err = s.transition(txCtx, app, models.ActionSubmit, "")
		return err
	})
	if err != nil {
		s.rejected(ctx, "submit", appID, err)
		return nil, err
	}
	s.observeTransition(change, start)
	s.notify(ctx, change)
	return app, nil
}

func joinTypes(types []models.DocumentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func joinSections(sections []models.Section) string {
	parts := make([]string, len(sections))
	for i, sec := range sections {
		parts[i] = string(sec)
	}
	return strings.Join(parts, ", ")
}
