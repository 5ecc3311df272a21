package app

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"mythos/internal/util"
	"mythos/pkg/domain"
)

// CreateProjectInput carries the fields for a new project.
type CreateProjectInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Genre         string   `json:"genre"`
	Collaborators []string `json:"collaborators"`
}

// ProjectPatch is a partial update; only non-nil fields are applied.
type ProjectPatch struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Genre         *string   `json:"genre"`
	Collaborators *[]string `json:"collaborators"`
}

// CreateProject starts a new writing project owned by the identity.
func (a *App) CreateProject(identity domain.Identity, in CreateProjectInput) (domain.Project, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Project{}, validation("Title is required")
	}
	collaborators := in.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	ts := now()
	p := domain.Project{
		ID:            util.NewID(),
		UserID:        identity.UserID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Genre:         in.Genre,
		Collaborators: collaborators,
		WordCount:     0,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if err := a.store.SaveProject(p); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

// ListProjects returns owned and collaborated projects with child counts.
// Counts are gathered concurrently with a bounded group.
func (a *App) ListProjects(identity domain.Identity) ([]domain.ProjectSummary, error) {
	projects, err := a.store.ListProjectsForIdentity(identity.UserID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	res := make([]domain.ProjectSummary, len(projects))
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			counts, err := a.store.ProjectChildCounts(p.ID)
			if err != nil {
				return fmt.Errorf("count project children: %w", err)
			}
			res[i] = domain.ProjectSummary{
				Project:            p,
				ChaptersCount:      counts.Chapters,
				CharactersCount:    counts.Characters,
				WorldElementsCount: counts.WorldElements,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// GetProject returns a project with its chapters, characters, and world
// elements inlined.
func (a *App) GetProject(identity domain.Identity, projectID string) (domain.ProjectDetail, error) {
	p, err := a.accessibleProject(projectID, identity)
	if err != nil {
		return domain.ProjectDetail{}, err
	}
	chapters, err := a.store.ListChaptersByProject(p.ID)
	if err != nil {
		return domain.ProjectDetail{}, fmt.Errorf("list chapters: %w", err)
	}
	characters, err := a.store.ListCharactersByProject(p.ID)
	if err != nil {
		return domain.ProjectDetail{}, fmt.Errorf("list characters: %w", err)
	}
	elements, err := a.store.ListWorldElementsByProject(p.ID, "")
	if err != nil {
		return domain.ProjectDetail{}, fmt.Errorf("list world elements: %w", err)
	}
	return domain.ProjectDetail{
		Project:       p,
		Chapters:      chapters,
		Characters:    characters,
		WorldElements: elements,
	}, nil
}

// UpdateProject applies a partial update. Collaborators replace wholesale
// when present.
func (a *App) UpdateProject(identity domain.Identity, projectID string, patch ProjectPatch) (domain.Project, error) {
	p, err := a.accessibleProject(projectID, identity)
	if err != nil {
		return domain.Project{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Project{}, validation("Title is required")
		}
		p.Title = title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Genre != nil {
		p.Genre = *patch.Genre
	}
	if patch.Collaborators != nil {
		collaborators := *patch.Collaborators
		if collaborators == nil {
			collaborators = []string{}
		}
		p.Collaborators = collaborators
	}
	p.UpdatedAt = now()
	if err := a.store.SaveProject(p); err != nil {
		return domain.Project{}, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

// DeleteProject removes a project and everything under it. Only the owner
// may delete; anyone else sees not-found.
func (a *App) DeleteProject(identity domain.Identity, projectID string) error {
	p, found, err := a.store.GetProject(projectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	if !found || p.UserID != identity.UserID {
		return notFound("Project")
	}
	if err := a.store.DeleteProjectCascade(p.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
