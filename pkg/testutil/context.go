package testutil

import (
	"context"
	"net/http"
	"time"

	id "certflow/pkg/domain"
	"certflow/pkg/requestcontext"
)

// ActorContext returns ctx carrying an authenticated actor and a fixed
// request time, as the HTTP middleware would set them.
func ActorContext(ctx context.Context, actor id.ActorID, role requestcontext.Role, now time.Time) context.Context {
	ctx = requestcontext.WithActor(ctx, actor, role)
	return requestcontext.WithTime(ctx, now)
}

// WithActor attaches an actor to the request context, bypassing token
// verification.
func WithActor(req *http.Request, actor id.ActorID, role requestcontext.Role) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor, role))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
