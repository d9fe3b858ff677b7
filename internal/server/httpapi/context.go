package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

type ctxKey string

const actorKey ctxKey = "actor"

func withActor(ctx context.Context, e *models.Employee) context.Context {
	return context.WithValue(ctx, actorKey, e)
}

// ActorFromContext returns the authenticated employee, or nil.
func ActorFromContext(ctx context.Context) *models.Employee {
	e, _ := ctx.Value(actorKey).(*models.Employee)
	return e
}

// sessionToken takes the token from the session cookie, falling back to a
// Bearer Authorization header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return strings.TrimSpace(h[len(common.BearerPrefix):])
	}
	return ""
}
