package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/paleolab/internal/server/services"
)

func (s *Server) listCores(w http.ResponseWriter, r *http.Request) {
	list, err := s.cores.List(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, list)
}

func (s *Server) getCore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	c, err := s.cores.Get(r.Context(), ActorFromContext(r.Context()), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, c)
}

func (s *Server) createCore(w http.ResponseWriter, r *http.Request) {
	var req services.CoreInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	c, err := s.cores.Create(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	var req services.CorePatch
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	c, err := s.cores.Update(r.Context(), ActorFromContext(r.Context()), id, req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := s.cores.Delete(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) archiveCores(w http.ResponseWriter, r *http.Request) {
	res, err := s.archive.Archive(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, res)
}
