package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"mythos/internal/util"
	"mythos/pkg/domain"
)

const avatarURLTTL = 7 * 24 * time.Hour

var avatarContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// CreateCharacterInput carries the fields for a new character.
type CreateCharacterInput struct {
	ProjectID     string                         `json:"projectId"`
	Name          string                         `json:"name"`
	Description   string                         `json:"description"`
	Backstory     string                         `json:"backstory"`
	Traits        []string                       `json:"traits"`
	Relationships []domain.CharacterRelationship `json:"relationships"`
	Avatar        string                         `json:"avatar"`
}

// CharacterPatch is a partial update; only non-nil fields are applied.
type CharacterPatch struct {
	Name          *string                         `json:"name"`
	Description   *string                         `json:"description"`
	Backstory     *string                         `json:"backstory"`
	Traits        *[]string                       `json:"traits"`
	Relationships *[]domain.CharacterRelationship `json:"relationships"`
	Avatar        *string                         `json:"avatar"`
}

// CreateCharacter adds a character to a project.
func (a *App) CreateCharacter(identity domain.Identity, in CreateCharacterInput) (domain.Character, error) {
	if strings.TrimSpace(in.Name) == "" || in.ProjectID == "" {
		return domain.Character{}, validation("Name and projectId are required")
	}
	if _, err := a.accessibleProject(in.ProjectID, identity); err != nil {
		return domain.Character{}, err
	}
	traits := in.Traits
	if traits == nil {
		traits = []string{}
	}
	relationships := in.Relationships
	if relationships == nil {
		relationships = []domain.CharacterRelationship{}
	}
	ts := now()
	c := domain.Character{
		ID:            util.NewID(),
		ProjectID:     in.ProjectID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Backstory:     in.Backstory,
		Traits:        traits,
		Relationships: relationships,
		Avatar:        in.Avatar,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if err := a.store.SaveCharacter(c); err != nil {
		return domain.Character{}, fmt.Errorf("save character: %w", err)
	}
	return c, nil
}

// ListCharacters returns a project's characters.
func (a *App) ListCharacters(identity domain.Identity, projectID string) ([]domain.Character, error) {
	if _, err := a.accessibleProject(projectID, identity); err != nil {
		return nil, err
	}
	characters, err := a.store.ListCharactersByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return characters, nil
}

// GetCharacter returns a single character.
func (a *App) GetCharacter(identity domain.Identity, characterID string) (domain.Character, error) {
	return a.accessibleCharacter(characterID, identity)
}

// UpdateCharacter applies a partial update.
func (a *App) UpdateCharacter(identity domain.Identity, characterID string, patch CharacterPatch) (domain.Character, error) {
	c, err := a.accessibleCharacter(characterID, identity)
	if err != nil {
		return domain.Character{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Character{}, validation("Name is required")
		}
		c.Name = name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Backstory != nil {
		c.Backstory = *patch.Backstory
	}
	if patch.Traits != nil {
		traits := *patch.Traits
		if traits == nil {
			traits = []string{}
		}
		c.Traits = traits
	}
	if patch.Relationships != nil {
		relationships := *patch.Relationships
		if relationships == nil {
			relationships = []domain.CharacterRelationship{}
		}
		c.Relationships = relationships
	}
	if patch.Avatar != nil {
		c.Avatar = *patch.Avatar
	}
	c.UpdatedAt = now()
	if err := a.store.SaveCharacter(c); err != nil {
		return domain.Character{}, fmt.Errorf("save character: %w", err)
	}
	return c, nil
}

// DeleteCharacter removes a character.
func (a *App) DeleteCharacter(identity domain.Identity, characterID string) error {
	c, err := a.accessibleCharacter(characterID, identity)
	if err != nil {
		return err
	}
	if err := a.store.DeleteCharacter(c.ID); err != nil {
		return fmt.Errorf("delete character: %w", err)
	}
	return nil
}

// SetCharacterAvatar uploads an avatar image to object storage and saves a
// presigned URL on the character.
func (a *App) SetCharacterAvatar(ctx context.Context, identity domain.Identity, characterID, filename string, r io.Reader, size int64) (domain.Character, error) {
	c, err := a.accessibleCharacter(characterID, identity)
	if err != nil {
		return domain.Character{}, err
	}
	if a.avatars == nil {
		return domain.Character{}, fmt.Errorf("avatar storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := avatarContentTypes[ext]
	if !ok {
		return domain.Character{}, validation("Avatar must be a png, jpg, or webp image")
	}
	key := "avatars/" + c.ID + ext
	if err := a.avatars.Put(ctx, key, r, size, contentType); err != nil {
		return domain.Character{}, fmt.Errorf("upload avatar: %w", err)
	}
	url, err := a.avatars.PresignGet(ctx, key, avatarURLTTL)
	if err != nil {
		return domain.Character{}, fmt.Errorf("presign avatar: %w", err)
	}
	c.Avatar = url
	c.UpdatedAt = now()
	if err := a.store.SaveCharacter(c); err != nil {
		return domain.Character{}, fmt.Errorf("save character: %w", err)
	}
	return c, nil
}

func (a *App) accessibleCharacter(characterID string, identity domain.Identity) (domain.Character, error) {
	c, found, err := a.store.GetCharacter(characterID)
	if err != nil {
		return domain.Character{}, fmt.Errorf("get character: %w", err)
	}
	if !found {
		return domain.Character{}, notFound("Character")
	}
	if _, err := a.accessibleProject(c.ProjectID, identity); err != nil {
		return domain.Character{}, notFound("Character")
	}
	return c, nil
}
