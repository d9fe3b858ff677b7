package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/server/metrics"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Employee  *models.Employee `json:"employee"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	e, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, e)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrorValidation):
			s.metrics.LoginAttempt(metrics.LoginFailure)
		default:
			s.metrics.LoginAttempt(metrics.LoginError)
		}
		s.respondErr(w, r, err)
		return
	}
	s.metrics.LoginAttempt(metrics.LoginSuccess)

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	RespondWithJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Employee: sess.Employee})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		s.respondErr(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, ActorFromContext(r.Context()))
}
