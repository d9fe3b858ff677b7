package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/paleolab/internal/server/services"
)

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := s.employees.List(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, list)
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	e, err := s.employees.Get(r.Context(), ActorFromContext(r.Context()), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, e)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req services.EmployeeInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	e, err := s.employees.Create(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, e)
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	var req services.EmployeePatch
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	e, err := s.employees.Update(r.Context(), ActorFromContext(r.Context()), id, req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := s.employees.Delete(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
