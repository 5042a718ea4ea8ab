package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const maxMessageLength = 5000

type Conversation struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	ClientID     uuid.UUID
	FreelancerID uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewConversation(taskID, clientID, freelancerID uuid.UUID) (*Conversation, error) {
	if clientID == freelancerID {
		return nil, apperror.Validation("cannot start a conversation with yourself")
	}
	now := time.Now()
	return &Conversation{
		ID:           uuid.New(),
		TaskID:       taskID,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}

// Counterpart returns the other participant.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == c.ClientID {
		return c.FreelancerID
	}
	return c.ClientID
}

type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	CreatedAt      time.Time
}

func NewMessage(conversationID, senderID uuid.UUID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperror.Validation("message is too long")
	}
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}, nil
}
