package service

import (
	"context"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
)

// ListAudit returns the audit trail of an application, oldest first.
func (s *Service) ListAudit(ctx context.Context, appID id.ApplicationID) ([]audit.Entry, error) {
	if _, err := s.loadApplication(ctx, appID); err != nil {
		return nil, err
	}
	entries, err := s.auditor.List(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	return entries, nil
}
