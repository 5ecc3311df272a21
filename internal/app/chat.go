package app

import (
	"fmt"
	"strings"

	"mythos/internal/util"
	"mythos/pkg/domain"
)

// chatHistoryLimit caps how many recent messages a history read returns.
const chatHistoryLimit = 100

// PostChatMessageInput carries the fields for a new chat message.
type PostChatMessageInput struct {
	Message     string `json:"message"`
	ChapterID   string `json:"chapterId"`
	MessageType string `json:"messageType"`
}

// ListChatMessages returns recent messages oldest-first. An empty chapterID
// selects the project-wide general chat.
func (a *App) ListChatMessages(identity domain.Identity, projectID, chapterID string) ([]domain.ChatMessage, error) {
	if _, err := a.accessibleProject(projectID, identity); err != nil {
		return nil, err
	}
	msgs, err := a.store.ListChatMessages(projectID, chapterID, chatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return msgs, nil
}

// PostChatMessage records a message, freezing the author's current name and
// email onto it.
func (a *App) PostChatMessage(identity domain.Identity, projectID string, in PostChatMessageInput) (domain.ChatMessage, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return domain.ChatMessage{}, validation("Message is required")
	}
	messageType := in.MessageType
	if messageType == "" {
		messageType = string(domain.MessageText)
	}
	switch domain.MessageType(messageType) {
	case domain.MessageText, domain.MessageSystem, domain.MessageEditNotification:
	default:
		return domain.ChatMessage{}, validation("Invalid message type")
	}
	if _, err := a.accessibleProject(projectID, identity); err != nil {
		return domain.ChatMessage{}, err
	}
	authorName := identity.Email
	if user, found, err := a.store.GetUserByID(identity.UserID); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("get user: %w", err)
	} else if found {
		authorName = user.Name
	}
	msg := domain.ChatMessage{
		ID:          util.NewID(),
		ProjectID:   projectID,
		ChapterID:   in.ChapterID,
		UserID:      identity.UserID,
		UserEmail:   identity.Email,
		UserName:    authorName,
		Message:     message,
		MessageType: domain.MessageType(messageType),
		CreatedAt:   now(),
	}
	if err := a.store.AppendChatMessage(msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	return msg, nil
}

// DeleteChatMessage removes a message. Only the author or the project owner
// may delete; anyone else with project access gets ErrForbidden.
func (a *App) DeleteChatMessage(identity domain.Identity, projectID, messageID string) error {
	p, err := a.accessibleProject(projectID, identity)
	if err != nil {
		return err
	}
	msg, found, err := a.store.GetChatMessage(projectID, messageID)
	if err != nil {
		return fmt.Errorf("get chat message: %w", err)
	}
	if !found {
		return notFound("Message")
	}
	if msg.UserID != identity.UserID && p.UserID != identity.UserID {
		return ErrForbidden
	}
	if err := a.store.DeleteChatMessage(msg.ID); err != nil {
		return fmt.Errorf("delete chat message: %w", err)
	}
	return nil
}
