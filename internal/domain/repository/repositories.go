package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
)

// Transactor runs fn inside one database transaction carried by ctx.
// Repositories called with that ctx join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TaskFilter struct {
	Status *valueobject.TaskStatus
	Search string
	Limit  int
	Offset int
}

type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	Update(ctx context.Context, task *entity.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*entity.Task, int, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	Update(ctx context.Context, app *entity.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error)
	FindByTaskID(ctx context.Context, taskID uuid.UUID) ([]*entity.Application, error)
	FindByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Application, error)
	FindByTaskAndFreelancer(ctx context.Context, taskID, freelancerID uuid.UUID) (*entity.Application, error)
}

type EscrowRepository interface {
	Create(ctx context.Context, escrow *entity.Escrow) error
	// Update persists the escrow if its version still matches and bumps the version.
	Update(ctx context.Context, escrow *entity.Escrow) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Escrow, error)
	FindByIdempotencyKey(ctx context.Context, clientID uuid.UUID, key string) (*entity.Escrow, error)
	FindByPaymentReference(ctx context.Context, reference string) (*entity.Escrow, error)
	FindActiveByTaskID(ctx context.Context, taskID uuid.UUID) (*entity.Escrow, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Escrow, error)
	AppendEvents(ctx context.Context, escrowID uuid.UUID, actorID *uuid.UUID, changes []entity.StatusChange) error
	ListEvents(ctx context.Context, escrowID uuid.UUID) ([]*entity.EscrowEvent, error)
}

type MilestoneRepository interface {
	CreateBatch(ctx context.Context, milestones []*entity.Milestone) error
	Update(ctx context.Context, milestone *entity.Milestone) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Milestone, error)
	FindByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*entity.Milestone, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, dispute *entity.Dispute) error
	Update(ctx context.Context, dispute *entity.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	FindByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*entity.Dispute, error)
	ListActive(ctx context.Context, limit, offset int) ([]*entity.Dispute, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	FindByEscrowID(ctx context.Context, escrowID uuid.UUID) ([]*entity.LedgerEntry, error)
}

type VerificationFilter struct {
	Status *valueobject.VerificationStatus
	Limit  int
	Offset int
}

type VerificationRepository interface {
	Create(ctx context.Context, req *entity.VerificationRequest) error
	Update(ctx context.Context, req *entity.VerificationRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.VerificationRequest, error)
	FindByProviderReference(ctx context.Context, ref string) (*entity.VerificationRequest, error)
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*entity.VerificationRequest, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.VerificationRequest, error)
	List(ctx context.Context, filter VerificationFilter) ([]*entity.VerificationRequest, int, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	SetVerified(ctx context.Context, user *entity.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByRefreshToken(ctx context.Context, token string) (*entity.Session, error)
	Delete(ctx context.Context, token string) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error)
	FindByParticipants(ctx context.Context, taskID, clientID, freelancerID uuid.UUID) (*entity.Conversation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	FindByConversationID(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error)
}
