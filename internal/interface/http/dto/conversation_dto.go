package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ConversationResponse struct {
	ID           uuid.UUID `json:"id"`
	TaskID       uuid.UUID `json:"task_id"`
	ClientID     uuid.UUID `json:"client_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToConversationResponse(conv *entity.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           conv.ID,
		TaskID:       conv.TaskID,
		ClientID:     conv.ClientID,
		FreelancerID: conv.FreelancerID,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
}

func ToConversationResponses(convs []*entity.Conversation) []ConversationResponse {
	result := make([]ConversationResponse, len(convs))
	for i, conv := range convs {
		result[i] = ToConversationResponse(conv)
	}
	return result
}

func ToMessageResponse(msg *entity.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

func ToMessageResponses(msgs []*entity.Message) []MessageResponse {
	result := make([]MessageResponse, len(msgs))
	for i, msg := range msgs {
		result[i] = ToMessageResponse(msg)
	}
	return result
}
