package server

import (
	"net/http"

	"mythos/internal/app"
	"mythos/pkg/domain"
)

func (s *Server) handleWorldElements(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in app.CreateWorldElementInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, err := s.app.CreateWorldElement(identity, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleWorldElementTypes(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, domain.WorldElementTypes())
}

// handleWorldElementSubtree routes:
//
//	GET /world-elements/project/{projectId}[?type=]
//	GET/PUT/DELETE /world-elements/{id}
func (s *Server) handleWorldElementSubtree(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	parts := pathParts(r.URL.Path, "/world-elements/")
	switch {
	case len(parts) == 2 && parts[0] == "project":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		elements, err := s.app.ListWorldElements(identity, parts[1], r.URL.Query().Get("type"))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, elements)
	case len(parts) == 1:
		s.handleWorldElementByID(w, r, identity, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleWorldElementByID(w http.ResponseWriter, r *http.Request, identity domain.Identity, elementID string) {
	switch r.Method {
	case http.MethodGet:
		e, err := s.app.GetWorldElement(identity, elementID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	case http.MethodPut:
		var patch app.WorldElementPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		e, err := s.app.UpdateWorldElement(identity, elementID, patch)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	case http.MethodDelete:
		if err := s.app.DeleteWorldElement(identity, elementID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		methodNotAllowed(w)
	}
}
