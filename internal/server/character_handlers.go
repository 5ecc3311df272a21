package server

import (
	"net/http"

	"mythos/internal/app"
	"mythos/pkg/domain"
)

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in app.CreateCharacterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := s.app.CreateCharacter(identity, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleCharacterSubtree routes:
//
//	GET  /characters/project/{projectId}
//	GET/PUT/DELETE /characters/{id}
//	POST /characters/{id}/avatar
func (s *Server) handleCharacterSubtree(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	parts := pathParts(r.URL.Path, "/characters/")
	switch {
	case len(parts) == 2 && parts[0] == "project":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		characters, err := s.app.ListCharacters(identity, parts[1])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, characters)
	case len(parts) == 1:
		s.handleCharacterByID(w, r, identity, parts[0])
	case len(parts) == 2 && parts[1] == "avatar":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleCharacterAvatar(w, r, identity, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleCharacterByID(w http.ResponseWriter, r *http.Request, identity domain.Identity, characterID string) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.app.GetCharacter(identity, characterID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var patch app.CharacterPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		c, err := s.app.UpdateCharacter(identity, characterID, patch)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := s.app.DeleteCharacter(identity, characterID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCharacterAvatar(w http.ResponseWriter, r *http.Request, identity domain.Identity, characterID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxAvatarBytes)
	if err := r.ParseMultipartForm(s.maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid or oversized upload")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()
	c, err := s.app.SetCharacterAvatar(r.Context(), identity, characterID, header.Filename, file, header.Size)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
