package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const EventMessageNew = "message.new"

type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

type ListMyConversationsUseCase struct {
	convRepo repository.ConversationRepository
}

func NewListMyConversationsUseCase(convRepo repository.ConversationRepository) *ListMyConversationsUseCase {
	return &ListMyConversationsUseCase{convRepo: convRepo}
}

func (uc *ListMyConversationsUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, error) {
	return uc.convRepo.FindByUserID(ctx, userID)
}

type SendMessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	notifier Notifier
}

func NewSendMessageUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, notifier Notifier) *SendMessageUseCase {
	return &SendMessageUseCase{convRepo: convRepo, msgRepo: msgRepo, notifier: notifier}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conv.IsParticipant(senderID) {
		return nil, apperror.ErrForbidden
	}

	msg, err := entity.NewMessage(conversationID, senderID, content)
	if err != nil {
		return nil, err
	}

	if err := uc.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if uc.notifier != nil {
		payload := map[string]any{
			"conversation_id": conv.ID,
			"message_id":      msg.ID,
			"sender_id":       msg.SenderID,
			"content":         msg.Content,
			"created_at":      msg.CreatedAt,
		}
		if err := uc.notifier.BroadcastToUser(conv.Counterpart(senderID), EventMessageNew, payload); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("conversation_id", conv.ID).Warn("failed to push message")
		}
	}
	return msg, nil
}

type ListMessagesUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

func NewListMessagesUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{convRepo: convRepo, msgRepo: msgRepo}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conv.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.msgRepo.FindByConversationID(ctx, conversationID, limit, offset)
}
