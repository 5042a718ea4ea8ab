package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type ConversationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewConversationRepositoryAdapter(db *sqlx.DB) *ConversationRepositoryAdapter {
	return &ConversationRepositoryAdapter{db: db}
}

func (r *ConversationRepositoryAdapter) Create(ctx context.Context, c *entity.Conversation) error {
	query := `INSERT INTO conversations (id, task_id, client_id, freelancer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, c.ID, c.TaskID, c.ClientID, c.FreelancerID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return dbError(err, "failed to create conversation")
	}
	return nil
}

func (r *ConversationRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	var row conversationRow
	query := `SELECT id, task_id, client_id, freelancer_id, created_at, updated_at FROM conversations WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrConversationNotFound, "failed to get conversation")
	}
	return row.toEntity(), nil
}

func (r *ConversationRepositoryAdapter) FindByParticipants(ctx context.Context, taskID, clientID, freelancerID uuid.UUID) (*entity.Conversation, error) {
	var row conversationRow
	query := `SELECT id, task_id, client_id, freelancer_id, created_at, updated_at
		FROM conversations WHERE task_id = $1 AND client_id = $2 AND freelancer_id = $3`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, taskID, clientID, freelancerID); err != nil {
		err = notFoundOr(err, apperror.ErrConversationNotFound, "failed to get conversation")
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *ConversationRepositoryAdapter) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, error) {
	var rows []conversationRow
	query := `SELECT id, task_id, client_id, freelancer_id, created_at, updated_at
		FROM conversations WHERE client_id = $1 OR freelancer_id = $1 ORDER BY updated_at DESC`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, dbError(err, "failed to list conversations")
	}
	result := make([]*entity.Conversation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type conversationRow struct {
	ID           uuid.UUID `db:"id"`
	TaskID       uuid.UUID `db:"task_id"`
	ClientID     uuid.UUID `db:"client_id"`
	FreelancerID uuid.UUID `db:"freelancer_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (c *conversationRow) toEntity() *entity.Conversation {
	return &entity.Conversation{
		ID:           c.ID,
		TaskID:       c.TaskID,
		ClientID:     c.ClientID,
		FreelancerID: c.FreelancerID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type MessageRepositoryAdapter struct {
	db *sqlx.DB
}

func NewMessageRepositoryAdapter(db *sqlx.DB) *MessageRepositoryAdapter {
	return &MessageRepositoryAdapter{db: db}
}

// Create stores the message and bumps the conversation so it sorts first.
func (r *MessageRepositoryAdapter) Create(ctx context.Context, msg *entity.Message) error {
	q := conn(ctx, r.db)
	query := `INSERT INTO messages (id, conversation_id, sender_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query, msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt); err != nil {
		return dbError(err, "failed to create message")
	}
	if _, err := q.ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, msg.ConversationID, msg.CreatedAt); err != nil {
		return dbError(err, "failed to touch conversation")
	}
	return nil
}

func (r *MessageRepositoryAdapter) FindByConversationID(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	var rows []struct {
		ID             uuid.UUID `db:"id"`
		ConversationID uuid.UUID `db:"conversation_id"`
		SenderID       uuid.UUID `db:"sender_id"`
		Content        string    `db:"content"`
		CreatedAt      time.Time `db:"created_at"`
	}
	query := `SELECT id, conversation_id, sender_id, content, created_at FROM messages
		WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, conversationID, limit, offset); err != nil {
		return nil, dbError(err, "failed to list messages")
	}
	result := make([]*entity.Message, len(rows))
	for i, row := range rows {
		result[i] = &entity.Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			SenderID:       row.SenderID,
			Content:        row.Content,
			CreatedAt:      row.CreatedAt,
		}
	}
	return result, nil
}
