package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestLogger puts a request-scoped logger into the context and logs
// every finished request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.With("request_id", chiMiddleware.GetReqID(r.Context()))
		ctx := logging.IntoContext(r.Context(), l)

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		l.Info(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", statusOf(ww),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequest(r.Method, route, statusOf(ww), time.Since(start))
	})
}

func statusOf(ww chiMiddleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// session resolves the request's session token, if any, into the acting
// employee. A stale or forged token leaves the request anonymous.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := s.auth.CurrentUser(r.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				next.ServeHTTP(w, r)
				return
			}
			s.respondErr(w, r, err)
			return
		}

		ctx := withActor(r.Context(), actor)
		ctx = logging.IntoContext(ctx, logging.FromContext(ctx, s.logger).With("actor_id", actor.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()) == nil {
			RespondWithError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
