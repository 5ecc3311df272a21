package server

import (
	"net/http"
	"time"

	"mythos/internal/app"
	"mythos/pkg/domain"
)

type createShareResponse struct {
	ShareURL   string              `json:"shareUrl"`
	ShareToken string              `json:"shareToken"`
	AccessType domain.AccessType   `json:"accessType"`
	ExpiresAt  *time.Time          `json:"expiresAt"`
	Share      domain.ProjectShare `json:"share"`
}

// handleShareSubtree routes:
//
//	GET  /shares/shared/{token}            (public)
//	POST /shares/{projectId}/share
//	GET  /shares/{projectId}/shares
//	DELETE /shares/{projectId}/shares/{shareId}
func (s *Server) handleShareSubtree(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/shares/")

	// the public resolve endpoint bypasses authentication
	if len(parts) == 2 && parts[0] == "shared" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		view, err := s.app.ResolveShare(parts[1])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	identity, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "share":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var in app.CreateShareInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		info, err := s.app.CreateShare(identity, parts[0], in)
		if err != nil {
			s.audit(r, "share_create", "failure", "project_id", parts[0])
			s.writeAppError(w, r, err)
			return
		}
		s.audit(r, "share_create", "success", "project_id", parts[0], "share_id", info.ID)
		writeJSON(w, http.StatusCreated, createShareResponse{
			ShareURL:   info.ShareURL,
			ShareToken: info.ShareToken,
			AccessType: info.AccessType,
			ExpiresAt:  info.ExpiresAt,
			Share:      info.ProjectShare,
		})
	case len(parts) == 2 && parts[1] == "shares":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		shares, err := s.app.ListShares(identity, parts[0])
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, shares)
	case len(parts) == 3 && parts[1] == "shares":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteShare(identity, parts[0], parts[2]); err != nil {
			s.audit(r, "share_delete", "failure", "project_id", parts[0], "share_id", parts[2])
			s.writeAppError(w, r, err)
			return
		}
		s.audit(r, "share_delete", "success", "project_id", parts[0], "share_id", parts[2])
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}
