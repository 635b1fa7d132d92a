// Package identity attaches the verified caller to a request context.
// Authentication happens upstream; this core trusts the forwarded headers.
package identity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/model"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	// Browsers cannot set headers on a websocket handshake, so the same values may come as query params.
	QueryUserID   = "userId"
	QueryUserRole = "role"
)

var (
	ErrMissing     = apperr.Unauthorized("missing identity")
	ErrInvalidID   = apperr.Unauthorized("invalid user id")
	ErrInvalidRole = apperr.Unauthorized("invalid user role")
)

type ctxKey struct{}

// FromRequest reads the caller from identity headers, falling back to query parameters.
func FromRequest(r *http.Request) (model.Actor, error) {
	rawID := r.Header.Get(HeaderUserID)
	rawRole := r.Header.Get(HeaderUserRole)
	if rawID == "" && rawRole == "" {
		q := r.URL.Query()
		rawID = q.Get(QueryUserID)
		rawRole = q.Get(QueryUserRole)
	}

	if rawID == "" || rawRole == "" {
		return model.Actor{}, ErrMissing
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return model.Actor{}, ErrInvalidID
	}

	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.Actor{}, ErrInvalidRole
	}

	return model.Actor{ID: id, Role: role}, nil
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFrom returns the caller stored by WithActor.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(model.Actor)
	return actor, ok
}
