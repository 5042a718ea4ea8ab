package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/conversation"
)

type mockConversationRepository struct {
	conversations map[uuid.UUID]*entity.Conversation
}

func newMockConversationRepository() *mockConversationRepository {
	return &mockConversationRepository{conversations: make(map[uuid.UUID]*entity.Conversation)}
}

func (m *mockConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	m.conversations[c.ID] = c
	return nil
}

func (m *mockConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	if c, ok := m.conversations[id]; ok {
		return c, nil
	}
	return nil, apperror.ErrConversationNotFound
}

func (m *mockConversationRepository) FindByParticipants(ctx context.Context, taskID, clientID, freelancerID uuid.UUID) (*entity.Conversation, error) {
	for _, c := range m.conversations {
		if c.TaskID == taskID && c.ClientID == clientID && c.FreelancerID == freelancerID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockConversationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, error) {
	var result []*entity.Conversation
	for _, c := range m.conversations {
		if c.ClientID == userID || c.FreelancerID == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockMessageRepository struct {
	messages  map[uuid.UUID]*entity.Message
	lastLimit int
}

func newMockMessageRepository() *mockMessageRepository {
	return &mockMessageRepository{messages: make(map[uuid.UUID]*entity.Message)}
}

func (m *mockMessageRepository) Create(ctx context.Context, msg *entity.Message) error {
	m.messages[msg.ID] = msg
	return nil
}

func (m *mockMessageRepository) FindByConversationID(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	m.lastLimit = limit
	var result []*entity.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type mockNotifier struct {
	sent map[uuid.UUID]int
}

func (n *mockNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	if n.sent == nil {
		n.sent = make(map[uuid.UUID]int)
	}
	n.sent[userID]++
	return nil
}

func createTestConversation(clientID, freelancerID uuid.UUID) *entity.Conversation {
	return &entity.Conversation{
		ID:           uuid.New(),
		TaskID:       uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestSendMessageUseCase_Success(t *testing.T) {
	convRepo := newMockConversationRepository()
	msgRepo := newMockMessageRepository()
	notifier := &mockNotifier{}
	uc := conversation.NewSendMessageUseCase(convRepo, msgRepo, notifier)

	clientID := uuid.New()
	freelancerID := uuid.New()
	conv := createTestConversation(clientID, freelancerID)
	convRepo.conversations[conv.ID] = conv

	msg, err := uc.Execute(context.Background(), conv.ID, clientID, "  Hello!  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg == nil {
		t.Fatal("expected message, got nil")
	}

	if msg.Content != "Hello!" {
		t.Errorf("expected content 'Hello!', got '%s'", msg.Content)
	}

	if notifier.sent[freelancerID] != 1 {
		t.Errorf("expected one push to the freelancer, got %d", notifier.sent[freelancerID])
	}
	if notifier.sent[clientID] != 0 {
		t.Error("sender should not receive their own message")
	}
}

func TestSendMessageUseCase_NotParticipant(t *testing.T) {
	convRepo := newMockConversationRepository()
	msgRepo := newMockMessageRepository()
	uc := conversation.NewSendMessageUseCase(convRepo, msgRepo, nil)

	conv := createTestConversation(uuid.New(), uuid.New())
	convRepo.conversations[conv.ID] = conv

	_, err := uc.Execute(context.Background(), conv.ID, uuid.New(), "Hello!")
	if !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSendMessageUseCase_Empty(t *testing.T) {
	convRepo := newMockConversationRepository()
	msgRepo := newMockMessageRepository()
	uc := conversation.NewSendMessageUseCase(convRepo, msgRepo, nil)

	clientID := uuid.New()
	conv := createTestConversation(clientID, uuid.New())
	convRepo.conversations[conv.ID] = conv

	_, err := uc.Execute(context.Background(), conv.ID, clientID, "   ")
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(msgRepo.messages) != 0 {
		t.Error("empty message must not be stored")
	}
}

func TestListMessagesUseCase_DefaultsLimit(t *testing.T) {
	convRepo := newMockConversationRepository()
	msgRepo := newMockMessageRepository()
	uc := conversation.NewListMessagesUseCase(convRepo, msgRepo)

	clientID := uuid.New()
	conv := createTestConversation(clientID, uuid.New())
	convRepo.conversations[conv.ID] = conv
	msg, _ := entity.NewMessage(conv.ID, clientID, "hi")
	msgRepo.messages[msg.ID] = msg

	result, err := uc.Execute(context.Background(), conv.ID, clientID, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("expected 1 message, got %d", len(result))
	}
	if msgRepo.lastLimit != 50 {
		t.Errorf("expected default limit 50, got %d", msgRepo.lastLimit)
	}

	if _, err := uc.Execute(context.Background(), conv.ID, uuid.New(), 10, 0); !apperror.IsForbidden(err) {
		t.Errorf("expected forbidden for outsider, got %v", err)
	}
}

func TestListMyConversationsUseCase_Success(t *testing.T) {
	convRepo := newMockConversationRepository()
	uc := conversation.NewListMyConversationsUseCase(convRepo)

	userID := uuid.New()
	conv1 := createTestConversation(userID, uuid.New())
	conv2 := createTestConversation(uuid.New(), userID)
	conv3 := createTestConversation(uuid.New(), uuid.New())
	convRepo.conversations[conv1.ID] = conv1
	convRepo.conversations[conv2.ID] = conv2
	convRepo.conversations[conv3.ID] = conv3

	result, err := uc.Execute(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("expected 2 conversations, got %d", len(result))
	}
}
