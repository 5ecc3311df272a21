package app

import (
	"fmt"

	"mythos/pkg/domain"
)

// CanAccess reports whether the identity may read and edit the project:
// the owner by id, or anyone whose email is listed as a collaborator.
func CanAccess(p domain.Project, id domain.Identity) bool {
	if p.UserID == id.UserID {
		return true
	}
	for _, email := range p.Collaborators {
		if email == id.Email {
			return true
		}
	}
	return false
}

// accessibleProject loads a project the identity may work with.
// Missing projects and denied access both come back as not-found so callers
// cannot probe for project ids they have no business seeing.
func (a *App) accessibleProject(projectID string, identity domain.Identity) (domain.Project, error) {
	p, found, err := a.store.GetProject(projectID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	if !found || !CanAccess(p, identity) {
		return domain.Project{}, notFound("Project")
	}
	return p, nil
}

// ownedProject loads a project for owner-only operations (share management).
// A collaborator gets ErrForbidden rather than not-found.
func (a *App) ownedProject(projectID string, identity domain.Identity) (domain.Project, error) {
	p, found, err := a.store.GetProject(projectID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	if !found {
		return domain.Project{}, notFound("Project")
	}
	if p.UserID != identity.UserID {
		return domain.Project{}, ErrForbidden
	}
	return p, nil
}
