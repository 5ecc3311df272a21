package domain

import "time"

// WorldElementType enumerates the fixed world-building categories.
type WorldElementType string

const (
	ElementLocation     WorldElementType = "location"
	ElementOrganization WorldElementType = "organization"
	ElementMagicSystem  WorldElementType = "magic-system"
	ElementCulture      WorldElementType = "culture"
	ElementTechnology   WorldElementType = "technology"
)

// WorldElementTypes returns the valid types in display order.
func WorldElementTypes() []WorldElementType {
	return []WorldElementType{
		ElementLocation,
		ElementOrganization,
		ElementMagicSystem,
		ElementCulture,
		ElementTechnology,
	}
}

// ValidWorldElementType reports whether raw names a known type.
func ValidWorldElementType(raw string) bool {
	for _, t := range WorldElementTypes() {
		if string(t) == raw {
			return true
		}
	}
	return false
}

type MessageType string

const (
	MessageText             MessageType = "text"
	MessageSystem           MessageType = "system"
	MessageEditNotification MessageType = "edit-notification"
)

type AccessType string

const (
	AccessRead    AccessType = "read"
	AccessComment AccessType = "comment"
)

// Identity is the authenticated caller decoded from a bearer token.
type Identity struct {
	UserID string
	Email  string
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Project struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Genre         string    `json:"genre,omitempty"`
	Collaborators []string  `json:"collaborators"`
	WordCount     int       `json:"wordCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProjectSummary is the list-view shape with derived child counts.
type ProjectSummary struct {
	Project
	ChaptersCount      int `json:"chaptersCount"`
	CharactersCount    int `json:"charactersCount"`
	WorldElementsCount int `json:"worldElementsCount"`
}

// ProjectDetail is the single-project shape with all children inlined.
type ProjectDetail struct {
	Project
	Chapters      []Chapter      `json:"chapters"`
	Characters    []Character    `json:"characters"`
	WorldElements []WorldElement `json:"worldElements"`
}

type Chapter struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChapterVersion is an immutable snapshot of a chapter at one point in time.
type ChapterVersion struct {
	ID                string    `json:"id"`
	ChapterID         string    `json:"chapterId"`
	Version           int       `json:"version"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	WordCount         int       `json:"wordCount"`
	AuthorID          string    `json:"authorId"`
	AuthorEmail       string    `json:"authorEmail"`
	ChangeDescription string    `json:"changeDescription,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type CharacterRelationship struct {
	CharacterID  string `json:"characterId"`
	Relationship string `json:"relationship"`
}

type Character struct {
	ID            string                  `json:"id"`
	ProjectID     string                  `json:"projectId"`
	Name          string                  `json:"name"`
	Description   string                  `json:"description,omitempty"`
	Backstory     string                  `json:"backstory,omitempty"`
	Traits        []string                `json:"traits"`
	Relationships []CharacterRelationship `json:"relationships"`
	Avatar        string                  `json:"avatar,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

type WorldElement struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"projectId"`
	Name        string           `json:"name"`
	Type        WorldElementType `json:"type"`
	Description string           `json:"description,omitempty"`
	Details     map[string]any   `json:"details"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ChatMessage freezes the author's name and email at write time so later
// profile edits do not rewrite history.
type ChatMessage struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	ChapterID   string      `json:"chapterId,omitempty"`
	UserID      string      `json:"userId"`
	UserEmail   string      `json:"userEmail"`
	UserName    string      `json:"userName"`
	Message     string      `json:"message"`
	MessageType MessageType `json:"messageType"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ProjectShare grants unauthenticated read access via an opaque token.
type ProjectShare struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"projectId"`
	ShareToken string     `json:"shareToken"`
	AccessType AccessType `json:"accessType"`
	CreatedBy  string     `json:"createdBy"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ShareInfo is the owner-facing list shape with derived fields.
type ShareInfo struct {
	ProjectShare
	ShareURL  string `json:"shareUrl"`
	IsExpired bool   `json:"isExpired"`
}

// SharedProject is the subset of project fields exposed through a share token.
type SharedProject struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	WordCount   int       `json:"wordCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SharedProjectView is the public response for a resolved share token.
type SharedProjectView struct {
	Project      SharedProject `json:"project"`
	Chapters     []Chapter     `json:"chapters"`
	AccessType   AccessType    `json:"accessType"`
	IsSharedView bool          `json:"isSharedView"`
}
