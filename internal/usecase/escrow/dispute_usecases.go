package escrow

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
)

type RaiseDisputeInput struct {
	EscrowID    uuid.UUID
	UserID      uuid.UUID
	Reason      string
	Description string
	Evidence    []string
}

type RaiseDisputeUseCase struct {
	store       *Store
	disputeRepo repository.DisputeRepository
}

func NewRaiseDisputeUseCase(store *Store, disputeRepo repository.DisputeRepository) *RaiseDisputeUseCase {
	return &RaiseDisputeUseCase{store: store, disputeRepo: disputeRepo}
}

func (uc *RaiseDisputeUseCase) Execute(ctx context.Context, in RaiseDisputeInput) (*entity.Dispute, error) {
	var (
		receipt Receipt
		dispute *entity.Dispute
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context) error {
		e, err := uc.store.Escrows().FindByID(ctx, in.EscrowID)
		if err != nil {
			return err
		}
		receipt.Escrow = e
		dispute, err = entity.NewDispute(e, in.UserID, in.Reason, in.Description, in.Evidence)
		if err != nil {
			return err
		}
		if err := e.Dispute(); err != nil {
			return err
		}
		if err := uc.disputeRepo.Create(ctx, dispute); err != nil {
			return err
		}
		return uc.store.Save(ctx, &receipt, &in.UserID)
	})
	if err != nil {
		return nil, err
	}
	uc.store.Publish(ctx, &receipt, EventEscrowDisputed, map[string]any{
		"escrow_id":  receipt.Escrow.ID,
		"dispute_id": dispute.ID,
		"raised_by":  dispute.RaisedBy,
		"reason":     dispute.Reason,
	})
	return dispute, nil
}

type ReviewDisputeUseCase struct {
	disputeRepo repository.DisputeRepository
}

func NewReviewDisputeUseCase(disputeRepo repository.DisputeRepository) *ReviewDisputeUseCase {
	return &ReviewDisputeUseCase{disputeRepo: disputeRepo}
}

func (uc *ReviewDisputeUseCase) Execute(ctx context.Context, disputeID uuid.UUID) (*entity.Dispute, error) {
	d, err := uc.disputeRepo.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.StartReview(); err != nil {
		return nil, err
	}
	if err := uc.disputeRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

type ResolveDisputeInput struct {
	DisputeID  uuid.UUID
	AdminID    uuid.UUID
	Outcome    valueobject.EscrowStatus
	Resolution string
}

// ResolveDisputeUseCase arbitrates a dispute. The escrow either resumes,
// pays the freelancer what is left or refunds the client.
type ResolveDisputeUseCase struct {
	store       *Store
	disputeRepo repository.DisputeRepository
	taskRepo    repository.TaskRepository
}

func NewResolveDisputeUseCase(store *Store, disputeRepo repository.DisputeRepository, taskRepo repository.TaskRepository) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{store: store, disputeRepo: disputeRepo, taskRepo: taskRepo}
}

func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, in ResolveDisputeInput) (*entity.Dispute, error) {
	var (
		receipt Receipt
		dispute *entity.Dispute
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		dispute, err = uc.disputeRepo.FindByID(ctx, in.DisputeID)
		if err != nil {
			return err
		}
		e, err := uc.store.Escrows().FindByID(ctx, dispute.EscrowID)
		if err != nil {
			return err
		}
		receipt.Escrow = e

		if err := dispute.Resolve(in.AdminID, in.Outcome, in.Resolution); err != nil {
			return err
		}
		amount, err := e.ResolveDispute(in.Outcome)
		if err != nil {
			return err
		}
		if err := uc.disputeRepo.Update(ctx, dispute); err != nil {
			return err
		}
		if err := uc.store.Save(ctx, &receipt, &in.AdminID); err != nil {
			return err
		}

		switch e.Status {
		case valueobject.EscrowStatusReleased:
			if err := uc.store.Book(ctx, &receipt, e.FreelancerID, entity.LedgerKindRelease, amount, nil); err != nil {
				return err
			}
		case valueobject.EscrowStatusRefunded:
			if err := uc.store.Book(ctx, &receipt, e.ClientID, entity.LedgerKindRefund, amount, nil); err != nil {
				return err
			}
		default:
			return nil
		}
		return settleTask(ctx, uc.taskRepo, e)
	})
	if err != nil {
		return nil, err
	}
	uc.store.Publish(ctx, &receipt, EventDisputeResolved, map[string]any{
		"escrow_id":  receipt.Escrow.ID,
		"dispute_id": dispute.ID,
		"outcome":    receipt.Escrow.Status,
		"resolution": dispute.Resolution,
	})
	return dispute, nil
}

type ListActiveDisputesUseCase struct {
	disputeRepo repository.DisputeRepository
}

func NewListActiveDisputesUseCase(disputeRepo repository.DisputeRepository) *ListActiveDisputesUseCase {
	return &ListActiveDisputesUseCase{disputeRepo: disputeRepo}
}

func (uc *ListActiveDisputesUseCase) Execute(ctx context.Context, limit, offset int) ([]*entity.Dispute, error) {
	return uc.disputeRepo.ListActive(ctx, limit, offset)
}
