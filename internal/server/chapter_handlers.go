package server

import (
	"net/http"

	"mythos/internal/app"
	"mythos/pkg/domain"
)

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in app.CreateChapterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := s.app.CreateChapter(identity, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleChapterSubtree routes:
//
//	GET  /chapters/project/{projectId}
//	GET  /chapters/{id}
//	PUT  /chapters/{id}
//	DELETE /chapters/{id}
//	GET  /chapters/{id}/versions
//	GET  /chapters/{id}/versions/{versionId}
//	POST /chapters/{id}/restore/{versionId}
func (s *Server) handleChapterSubtree(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	parts := pathParts(r.URL.Path, "/chapters/")
	switch {
	case len(parts) == 2 && parts[0] == "project":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		chapters, err := s.app.ListChapters(identity, parts[1])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, chapters)
	case len(parts) == 1:
		s.handleChapterByID(w, r, identity, parts[0])
	case len(parts) == 2 && parts[1] == "versions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		versions, err := s.app.ListChapterVersions(identity, parts[0])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, versions)
	case len(parts) == 3 && parts[1] == "versions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		v, err := s.app.GetChapterVersion(identity, parts[0], parts[2])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case len(parts) == 3 && parts[1] == "restore":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		c, err := s.app.RestoreChapterVersion(identity, parts[0], parts[2])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleChapterByID(w http.ResponseWriter, r *http.Request, identity domain.Identity, chapterID string) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.app.GetChapter(identity, chapterID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var patch app.ChapterPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		c, err := s.app.UpdateChapter(identity, chapterID, patch)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := s.app.DeleteChapter(identity, chapterID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		methodNotAllowed(w)
	}
}
