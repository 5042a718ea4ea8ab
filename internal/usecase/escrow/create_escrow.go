package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type MilestoneInput struct {
	Title        string
	Description  string
	Amount       int64
	DueDate      *time.Time
	Deliverables []string
}

type CreateEscrowInput struct {
	ClientID       uuid.UUID
	TaskID         uuid.UUID
	FreelancerID   uuid.UUID
	ApplicationID  *uuid.UUID
	Amount         int64
	Currency       string
	PaymentType    valueobject.PaymentType
	Milestones     []MilestoneInput
	IdempotencyKey string
}

// Prepare validates the input and builds the escrow with its milestones.
// A milestone escrow created with milestones must match the amount exactly;
// one created without them gets its set through AddMilestone before funding.
func Prepare(in CreateEscrowInput) (*entity.Escrow, []*entity.Milestone, error) {
	e, err := entity.NewEscrow(entity.NewEscrowParams{
		TaskID:         in.TaskID,
		ClientID:       in.ClientID,
		FreelancerID:   in.FreelancerID,
		ApplicationID:  in.ApplicationID,
		Amount:         in.Amount,
		Currency:       in.Currency,
		PaymentType:    in.PaymentType,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, nil, err
	}

	if !e.IsMilestoneBased() {
		if len(in.Milestones) > 0 {
			return nil, nil, apperror.Validation("milestones are only allowed for milestone payments")
		}
		return e, nil, nil
	}

	milestones := make([]*entity.Milestone, 0, len(in.Milestones))
	for i, m := range in.Milestones {
		ms, err := entity.NewMilestone(e.ID, i+1, entity.MilestoneDraft{
			Title:        m.Title,
			Description:  m.Description,
			Amount:       m.Amount,
			DueDate:      m.DueDate,
			Deliverables: m.Deliverables,
		})
		if err != nil {
			return nil, nil, err
		}
		milestones = append(milestones, ms)
	}
	if len(milestones) > 0 {
		if err := entity.ValidateMilestoneTotal(e.Amount.Amount, milestones); err != nil {
			return nil, nil, err
		}
	}
	return e, milestones, nil
}

type CreateEscrowUseCase struct {
	store    *Store
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

func NewCreateEscrowUseCase(store *Store, taskRepo repository.TaskRepository, userRepo repository.UserRepository) *CreateEscrowUseCase {
	return &CreateEscrowUseCase{store: store, taskRepo: taskRepo, userRepo: userRepo}
}

func (uc *CreateEscrowUseCase) Execute(ctx context.Context, in CreateEscrowInput) (*entity.Escrow, error) {
	if in.IdempotencyKey != "" {
		existing, err := uc.replay(ctx, in)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	task, err := uc.taskRepo.FindByID(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnedBy(in.ClientID) {
		return nil, apperror.ErrForbidden
	}
	if _, err := uc.userRepo.FindByID(ctx, in.FreelancerID); err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = task.Currency
	}

	e, milestones, err := Prepare(in)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Escrow: e}
	err = uc.store.WithinTx(ctx, func(ctx context.Context) error {
		active, err := uc.store.Escrows().FindActiveByTaskID(ctx, e.TaskID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperror.New(apperror.ErrCodeConflict, "task already has an active escrow")
		}
		return uc.store.Create(ctx, receipt, milestones, &in.ClientID)
	})
	if err != nil {
		// A concurrent retry with the same key won the insert.
		if in.IdempotencyKey != "" && apperror.IsConflict(err) {
			if existing, rerr := uc.replay(ctx, in); rerr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	uc.store.Publish(ctx, receipt, EventEscrowUpdated, nil)
	return e, nil
}

// replay returns the escrow an earlier request with the same key created.
func (uc *CreateEscrowUseCase) replay(ctx context.Context, in CreateEscrowInput) (*entity.Escrow, error) {
	existing, err := uc.store.Escrows().FindByIdempotencyKey(ctx, in.ClientID, in.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.TaskID != in.TaskID || existing.FreelancerID != in.FreelancerID || existing.Amount.Amount != in.Amount {
		return nil, apperror.New(apperror.ErrCodeConflict, "idempotency key was used for a different escrow")
	}
	return existing, nil
}
