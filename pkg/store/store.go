package store

import (
	"time"

	"mythos/pkg/domain"
)

// ChildCounts carries the derived per-project child tallies for list views.
type ChildCounts struct {
	Chapters      int
	Characters    int
	WorldElements int
}

// Store defines persistence operations for the writing workspace.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// projects
	SaveProject(domain.Project) error
	GetProject(id string) (domain.Project, bool, error)
	ListProjectsForIdentity(userID, email string) ([]domain.Project, error)
	ProjectChildCounts(projectID string) (ChildCounts, error)
	SetProjectWordCount(projectID string, wordCount int, updatedAt time.Time) error
	DeleteProjectCascade(id string) error

	// chapters
	SaveChapter(domain.Chapter) error
	GetChapter(id string) (domain.Chapter, bool, error)
	ListChaptersByProject(projectID string) ([]domain.Chapter, error)
	SumChapterWordCounts(projectID string) (int, error)
	DeleteChapter(id string) error

	// chapter versions
	AppendChapterVersion(v domain.ChapterVersion) (domain.ChapterVersion, error)
	ListChapterVersions(chapterID string) ([]domain.ChapterVersion, error)
	GetChapterVersion(chapterID, versionID string) (domain.ChapterVersion, bool, error)

	// characters
	SaveCharacter(domain.Character) error
	GetCharacter(id string) (domain.Character, bool, error)
	ListCharactersByProject(projectID string) ([]domain.Character, error)
	DeleteCharacter(id string) error

	// world elements
	SaveWorldElement(domain.WorldElement) error
	GetWorldElement(id string) (domain.WorldElement, bool, error)
	ListWorldElementsByProject(projectID, elementType string) ([]domain.WorldElement, error)
	DeleteWorldElement(id string) error

	// chat
	AppendChatMessage(domain.ChatMessage) error
	ListChatMessages(projectID, chapterID string, limit int) ([]domain.ChatMessage, error)
	GetChatMessage(projectID, messageID string) (domain.ChatMessage, bool, error)
	DeleteChatMessage(id string) error

	// shares
	SaveShare(domain.ProjectShare) error
	GetShareByToken(token string) (domain.ProjectShare, bool, error)
	ListSharesByProject(projectID string) ([]domain.ProjectShare, error)
	DeleteShare(projectID, shareID string) error
}
