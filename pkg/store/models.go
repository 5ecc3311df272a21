package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ProjectModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	Description   string
	Genre         string
	Collaborators datatypes.JSON `gorm:"type:jsonb"`
	WordCount     int            `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

type ChapterModel struct {
	ID        string    `gorm:"primaryKey"`
	ProjectID string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	Order     int       `gorm:"column:sort_order;not null"`
	WordCount int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ChapterVersionModel struct {
	ID                string `gorm:"primaryKey"`
	ChapterID         string `gorm:"not null;index;uniqueIndex:idx_chapter_version"`
	Version           int    `gorm:"not null;uniqueIndex:idx_chapter_version"`
	Title             string `gorm:"not null"`
	Content           string `gorm:"type:text"`
	WordCount         int    `gorm:"not null"`
	AuthorID          string `gorm:"not null"`
	AuthorEmail       string `gorm:"not null"`
	ChangeDescription string
	CreatedAt         time.Time `gorm:"not null;index"`
}

type CharacterModel struct {
	ID            string         `gorm:"primaryKey"`
	ProjectID     string         `gorm:"not null;index"`
	Name          string         `gorm:"not null"`
	Description   string         `gorm:"type:text"`
	Backstory     string         `gorm:"type:text"`
	Traits        datatypes.JSON `gorm:"type:jsonb"`
	Relationships datatypes.JSON `gorm:"type:jsonb"`
	Avatar        string
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type WorldElementModel struct {
	ID          string         `gorm:"primaryKey"`
	ProjectID   string         `gorm:"not null;index"`
	Name        string         `gorm:"not null"`
	Type        string         `gorm:"not null;index"`
	Description string         `gorm:"type:text"`
	Details     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type ChatMessageModel struct {
	ID          string    `gorm:"primaryKey"`
	ProjectID   string    `gorm:"not null;index"`
	ChapterID   *string   `gorm:"index"`
	UserID      string    `gorm:"not null"`
	UserEmail   string    `gorm:"not null"`
	UserName    string    `gorm:"not null"`
	Message     string    `gorm:"type:text;not null"`
	MessageType string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

type ProjectShareModel struct {
	ID         string `gorm:"primaryKey"`
	ProjectID  string `gorm:"not null;index"`
	ShareToken string `gorm:"uniqueIndex;not null"`
	AccessType string `gorm:"not null"`
	CreatedBy  string `gorm:"not null"`
	ExpiresAt  *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}
