package app

import (
	"fmt"
	"strings"

	"mythos/internal/util"
	"mythos/pkg/domain"
)

// CreateWorldElementInput carries the fields for a new world element.
type CreateWorldElementInput struct {
	ProjectID   string         `json:"projectId"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`
}

// WorldElementPatch is a partial update; only non-nil fields are applied.
type WorldElementPatch struct {
	Name        *string         `json:"name"`
	Type        *string         `json:"type"`
	Description *string         `json:"description"`
	Details     *map[string]any `json:"details"`
}

// CreateWorldElement adds a world-building element to a project.
func (a *App) CreateWorldElement(identity domain.Identity, in CreateWorldElementInput) (domain.WorldElement, error) {
	if strings.TrimSpace(in.Name) == "" || in.ProjectID == "" || in.Type == "" {
		return domain.WorldElement{}, validation("Name, type and projectId are required")
	}
	if !domain.ValidWorldElementType(in.Type) {
		return domain.WorldElement{}, validation("Invalid element type")
	}
	if _, err := a.accessibleProject(in.ProjectID, identity); err != nil {
		return domain.WorldElement{}, err
	}
	details := in.Details
	if details == nil {
		details = map[string]any{}
	}
	ts := now()
	e := domain.WorldElement{
		ID:          util.NewID(),
		ProjectID:   in.ProjectID,
		Name:        strings.TrimSpace(in.Name),
		Type:        domain.WorldElementType(in.Type),
		Description: in.Description,
		Details:     details,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := a.store.SaveWorldElement(e); err != nil {
		return domain.WorldElement{}, fmt.Errorf("save world element: %w", err)
	}
	return e, nil
}

// ListWorldElements returns a project's world elements. A type filter that
// does not match the enumeration is ignored.
func (a *App) ListWorldElements(identity domain.Identity, projectID, elementType string) ([]domain.WorldElement, error) {
	if _, err := a.accessibleProject(projectID, identity); err != nil {
		return nil, err
	}
	if !domain.ValidWorldElementType(elementType) {
		elementType = ""
	}
	elements, err := a.store.ListWorldElementsByProject(projectID, elementType)
	if err != nil {
		return nil, fmt.Errorf("list world elements: %w", err)
	}
	return elements, nil
}

// GetWorldElement returns a single world element.
func (a *App) GetWorldElement(identity domain.Identity, elementID string) (domain.WorldElement, error) {
	return a.accessibleWorldElement(elementID, identity)
}

// UpdateWorldElement applies a partial update.
func (a *App) UpdateWorldElement(identity domain.Identity, elementID string, patch WorldElementPatch) (domain.WorldElement, error) {
	e, err := a.accessibleWorldElement(elementID, identity)
	if err != nil {
		return domain.WorldElement{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.WorldElement{}, validation("Name is required")
		}
		e.Name = name
	}
	if patch.Type != nil {
		if !domain.ValidWorldElementType(*patch.Type) {
			return domain.WorldElement{}, validation("Invalid element type")
		}
		e.Type = domain.WorldElementType(*patch.Type)
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.Details != nil {
		details := *patch.Details
		if details == nil {
			details = map[string]any{}
		}
		e.Details = details
	}
	e.UpdatedAt = now()
	if err := a.store.SaveWorldElement(e); err != nil {
		return domain.WorldElement{}, fmt.Errorf("save world element: %w", err)
	}
	return e, nil
}

// DeleteWorldElement removes a world element.
func (a *App) DeleteWorldElement(identity domain.Identity, elementID string) error {
	e, err := a.accessibleWorldElement(elementID, identity)
	if err != nil {
		return err
	}
	if err := a.store.DeleteWorldElement(e.ID); err != nil {
		return fmt.Errorf("delete world element: %w", err)
	}
	return nil
}

func (a *App) accessibleWorldElement(elementID string, identity domain.Identity) (domain.WorldElement, error) {
	e, found, err := a.store.GetWorldElement(elementID)
	if err != nil {
		return domain.WorldElement{}, fmt.Errorf("get world element: %w", err)
	}
	if !found {
		return domain.WorldElement{}, notFound("World element")
	}
	if _, err := a.accessibleProject(e.ProjectID, identity); err != nil {
		return domain.WorldElement{}, notFound("World element")
	}
	return e, nil
}
