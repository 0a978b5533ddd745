package service

import (
	"context"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/audit"
	"certflow/pkg/requestcontext"
)

// SetVisibility toggles the public registry listing of a certified
// application. Setting the current value again is still audited.
func (s *Service) SetVisibility(ctx context.Context, appID id.ApplicationID, visible bool) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "SetVisibility")
	defer func() { endSpan(span, err) }()

	err = s.tx.RunInTx(ctx, appID, func(txCtx context.Context) error {
		app, err = s.loadApplication(txCtx, appID)
		if err != nil {
			return err
		}
		if err := app.SetListingVisible(visible, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.applications.Update(txCtx, app); err != nil {
			return translate(err, "application")
		}
		return s.emit(txCtx, appID, audit.ActionVisibilityChanged, describeVisibility(visible))
	})
	if err != nil {
		s.rejected(ctx, "set_visibility", appID, err)
		return nil, err
	}
	return app, nil
}

func describeVisibility(visible bool) string {
	if visible {
		return "Listing shown in the public registry"
	}
	return "Listing hidden from the public registry"
}
