package app

import (
	"fmt"
	"strings"

	"mythos/internal/util"
	"mythos/pkg/domain"
)

// CreateChapterInput carries the fields for a new chapter. Order is a
// pointer so a missing field can be told apart from position zero.
type CreateChapterInput struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Order     *int   `json:"order"`
}

// ChapterPatch is a partial update; only non-nil fields are applied.
type ChapterPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Order   *int    `json:"order"`
}

// CountWords splits on whitespace runs and counts non-empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CreateChapter adds a chapter, records version 1, and refreshes the
// project word count.
func (a *App) CreateChapter(identity domain.Identity, in CreateChapterInput) (domain.Chapter, error) {
	if strings.TrimSpace(in.Title) == "" || in.ProjectID == "" || in.Order == nil {
		return domain.Chapter{}, validation("Title, order and projectId are required")
	}
	if _, err := a.accessibleProject(in.ProjectID, identity); err != nil {
		return domain.Chapter{}, err
	}
	ts := now()
	c := domain.Chapter{
		ID:        util.NewID(),
		ProjectID: in.ProjectID,
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Order:     *in.Order,
		WordCount: CountWords(in.Content),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := a.store.SaveChapter(c); err != nil {
		return domain.Chapter{}, fmt.Errorf("save chapter: %w", err)
	}
	if err := a.recordVersion(c, identity, "Initial chapter creation"); err != nil {
		return domain.Chapter{}, err
	}
	if err := a.refreshProjectWordCount(c.ProjectID); err != nil {
		return domain.Chapter{}, err
	}
	return c, nil
}

// ListChapters returns a project's chapters ordered by position.
func (a *App) ListChapters(identity domain.Identity, projectID string) ([]domain.Chapter, error) {
	if _, err := a.accessibleProject(projectID, identity); err != nil {
		return nil, err
	}
	chapters, err := a.store.ListChaptersByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// GetChapter returns a single chapter.
func (a *App) GetChapter(identity domain.Identity, chapterID string) (domain.Chapter, error) {
	return a.accessibleChapter(chapterID, identity)
}

// UpdateChapter applies a partial update and always records a new version
// of the resulting state.
func (a *App) UpdateChapter(identity domain.Identity, chapterID string, patch ChapterPatch) (domain.Chapter, error) {
	c, err := a.accessibleChapter(chapterID, identity)
	if err != nil {
		return domain.Chapter{}, err
	}
	contentChanged := false
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Chapter{}, validation("Title is required")
		}
		c.Title = title
	}
	if patch.Content != nil {
		c.Content = *patch.Content
		c.WordCount = CountWords(c.Content)
		contentChanged = true
	}
	if patch.Order != nil {
		c.Order = *patch.Order
	}
	c.UpdatedAt = now()
	if err := a.store.SaveChapter(c); err != nil {
		return domain.Chapter{}, fmt.Errorf("save chapter: %w", err)
	}
	if err := a.recordVersion(c, identity, "Chapter updated"); err != nil {
		return domain.Chapter{}, err
	}
	if contentChanged {
		if err := a.refreshProjectWordCount(c.ProjectID); err != nil {
			return domain.Chapter{}, err
		}
	}
	return c, nil
}

// DeleteChapter removes a chapter and refreshes the project word count.
// Its versions are retained as an audit trail.
func (a *App) DeleteChapter(identity domain.Identity, chapterID string) error {
	c, err := a.accessibleChapter(chapterID, identity)
	if err != nil {
		return err
	}
	if err := a.store.DeleteChapter(c.ID); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return a.refreshProjectWordCount(c.ProjectID)
}

// ListChapterVersions returns a chapter's version history, newest first.
func (a *App) ListChapterVersions(identity domain.Identity, chapterID string) ([]domain.ChapterVersion, error) {
	c, err := a.accessibleChapter(chapterID, identity)
	if err != nil {
		return nil, err
	}
	versions, err := a.store.ListChapterVersions(c.ID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// GetChapterVersion returns one version. The version must belong to the
// chapter or the lookup fails as not-found.
func (a *App) GetChapterVersion(identity domain.Identity, chapterID, versionID string) (domain.ChapterVersion, error) {
	c, err := a.accessibleChapter(chapterID, identity)
	if err != nil {
		return domain.ChapterVersion{}, err
	}
	v, found, err := a.store.GetChapterVersion(c.ID, versionID)
	if err != nil {
		return domain.ChapterVersion{}, fmt.Errorf("get version: %w", err)
	}
	if !found {
		return domain.ChapterVersion{}, notFound("Version")
	}
	return v, nil
}

// RestoreChapterVersion overwrites the chapter with a snapshot and records
// the restore itself as a new version.
func (a *App) RestoreChapterVersion(identity domain.Identity, chapterID, versionID string) (domain.Chapter, error) {
	c, err := a.accessibleChapter(chapterID, identity)
	if err != nil {
		return domain.Chapter{}, err
	}
	v, found, err := a.store.GetChapterVersion(c.ID, versionID)
	if err != nil {
		return domain.Chapter{}, fmt.Errorf("get version: %w", err)
	}
	if !found {
		return domain.Chapter{}, notFound("Version")
	}
	c.Title = v.Title
	c.Content = v.Content
	c.WordCount = v.WordCount
	c.UpdatedAt = now()
	if err := a.store.SaveChapter(c); err != nil {
		return domain.Chapter{}, fmt.Errorf("save chapter: %w", err)
	}
	note := fmt.Sprintf("Restored to version %d", v.Version)
	if err := a.recordVersion(c, identity, note); err != nil {
		return domain.Chapter{}, err
	}
	if err := a.refreshProjectWordCount(c.ProjectID); err != nil {
		return domain.Chapter{}, err
	}
	return c, nil
}

// accessibleChapter loads a chapter and checks access through its project.
// Missing chapters and denied access both come back as not-found.
func (a *App) accessibleChapter(chapterID string, identity domain.Identity) (domain.Chapter, error) {
	c, found, err := a.store.GetChapter(chapterID)
	if err != nil {
		return domain.Chapter{}, fmt.Errorf("get chapter: %w", err)
	}
	if !found {
		return domain.Chapter{}, notFound("Chapter")
	}
	if _, err := a.accessibleProject(c.ProjectID, identity); err != nil {
		return domain.Chapter{}, notFound("Chapter")
	}
	return c, nil
}

func (a *App) recordVersion(c domain.Chapter, identity domain.Identity, note string) error {
	v := domain.ChapterVersion{
		ID:                util.NewID(),
		ChapterID:         c.ID,
		Title:             c.Title,
		Content:           c.Content,
		WordCount:         c.WordCount,
		AuthorID:          identity.UserID,
		AuthorEmail:       identity.Email,
		ChangeDescription: note,
		CreatedAt:         now(),
	}
	if _, err := a.store.AppendChapterVersion(v); err != nil {
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

func (a *App) refreshProjectWordCount(projectID string) error {
	sum, err := a.store.SumChapterWordCounts(projectID)
	if err != nil {
		return fmt.Errorf("sum word counts: %w", err)
	}
	if err := a.store.SetProjectWordCount(projectID, sum, now()); err != nil {
		return fmt.Errorf("set project word count: %w", err)
	}
	return nil
}
