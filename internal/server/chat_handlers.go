package server

import (
	"net/http"

	"mythos/internal/app"
	"mythos/pkg/domain"
)

// handleChatSubtree routes:
//
//	GET  /chat/{projectId}[?chapterId=]
//	POST /chat/{projectId}
//	DELETE /chat/{projectId}/{messageId}
func (s *Server) handleChatSubtree(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	parts := pathParts(r.URL.Path, "/chat/")
	switch {
	case len(parts) == 1:
		projectID := parts[0]
		switch r.Method {
		case http.MethodGet:
			msgs, err := s.app.ListChatMessages(identity, projectID, r.URL.Query().Get("chapterId"))
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, msgs)
		case http.MethodPost:
			var in app.PostChatMessageInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			msg, err := s.app.PostChatMessage(identity, projectID, in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, msg)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteChatMessage(identity, parts[0], parts[1]); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}
