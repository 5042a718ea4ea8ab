package escrow

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type party int

const (
	partyClient party = iota
	partyFreelancer
)

// mutate loads the escrow inside a transaction, checks the actor, applies fn and saves.
func mutate(ctx context.Context, store *Store, escrowID, actorID uuid.UUID, who party, fn func(ctx context.Context, r *Receipt) error) (*entity.Escrow, error) {
	var receipt Receipt
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		e, err := store.Escrows().FindByID(ctx, escrowID)
		if err != nil {
			return err
		}
		if (who == partyClient && !e.IsClient(actorID)) || (who == partyFreelancer && !e.IsFreelancer(actorID)) {
			return apperror.ErrForbidden
		}
		receipt.Escrow = e
		if err := fn(ctx, &receipt); err != nil {
			return err
		}
		return store.Save(ctx, &receipt, &actorID)
	})
	if err != nil {
		return nil, err
	}
	store.Publish(ctx, &receipt, EventEscrowUpdated, nil)
	return receipt.Escrow, nil
}

type StartWorkUseCase struct {
	store *Store
}

func NewStartWorkUseCase(store *Store) *StartWorkUseCase {
	return &StartWorkUseCase{store: store}
}

func (uc *StartWorkUseCase) Execute(ctx context.Context, escrowID, freelancerID uuid.UUID) (*entity.Escrow, error) {
	return mutate(ctx, uc.store, escrowID, freelancerID, partyFreelancer, func(ctx context.Context, r *Receipt) error {
		return r.Escrow.StartWork()
	})
}

type MarkCompletedUseCase struct {
	store *Store
}

func NewMarkCompletedUseCase(store *Store) *MarkCompletedUseCase {
	return &MarkCompletedUseCase{store: store}
}

func (uc *MarkCompletedUseCase) Execute(ctx context.Context, escrowID, clientID uuid.UUID) (*entity.Escrow, error) {
	return mutate(ctx, uc.store, escrowID, clientID, partyClient, func(ctx context.Context, r *Receipt) error {
		if r.Escrow.IsMilestoneBased() {
			if err := requireAllApproved(ctx, uc.store, r.Escrow, "be completed"); err != nil {
				return err
			}
		}
		return r.Escrow.Complete()
	})
}

func requireAllApproved(ctx context.Context, store *Store, e *entity.Escrow, action string) error {
	milestones, err := store.Milestones().FindByEscrowID(ctx, e.ID)
	if err != nil {
		return err
	}
	if !entity.ProgressOf(milestones).AllApproved() {
		return apperror.InvalidState("escrow", string(e.Status), action+" before every milestone is approved")
	}
	return nil
}

type ReleaseFundsUseCase struct {
	store    *Store
	taskRepo repository.TaskRepository
}

func NewReleaseFundsUseCase(store *Store, taskRepo repository.TaskRepository) *ReleaseFundsUseCase {
	return &ReleaseFundsUseCase{store: store, taskRepo: taskRepo}
}

func (uc *ReleaseFundsUseCase) Execute(ctx context.Context, escrowID, clientID uuid.UUID) (*entity.Escrow, error) {
	return mutate(ctx, uc.store, escrowID, clientID, partyClient, func(ctx context.Context, r *Receipt) error {
		e := r.Escrow
		if e.IsMilestoneBased() {
			if err := requireAllApproved(ctx, uc.store, e, "be released"); err != nil {
				return err
			}
		}
		remainder, err := e.Release()
		if err != nil {
			return err
		}
		if err := uc.store.Book(ctx, r, e.FreelancerID, entity.LedgerKindRelease, remainder, nil); err != nil {
			return err
		}
		return settleTask(ctx, uc.taskRepo, e)
	})
}

type RefundUseCase struct {
	store    *Store
	taskRepo repository.TaskRepository
}

func NewRefundUseCase(store *Store, taskRepo repository.TaskRepository) *RefundUseCase {
	return &RefundUseCase{store: store, taskRepo: taskRepo}
}

func (uc *RefundUseCase) Execute(ctx context.Context, escrowID, clientID uuid.UUID) (*entity.Escrow, error) {
	return mutate(ctx, uc.store, escrowID, clientID, partyClient, func(ctx context.Context, r *Receipt) error {
		e := r.Escrow
		wasFunded := e.FundedAt != nil
		amount, err := e.Refund()
		if err != nil {
			return err
		}
		if wasFunded {
			if err := uc.store.Book(ctx, r, e.ClientID, entity.LedgerKindRefund, amount, nil); err != nil {
				return err
			}
		}
		return settleTask(ctx, uc.taskRepo, e)
	})
}

// settleTask follows a terminal escrow: released completes the task, refunded cancels it.
func settleTask(ctx context.Context, taskRepo repository.TaskRepository, e *entity.Escrow) error {
	task, err := taskRepo.FindByID(ctx, e.TaskID)
	if err != nil {
		return err
	}
	if task.Status != valueobject.TaskStatusInProgress {
		return nil
	}
	switch e.Status {
	case valueobject.EscrowStatusReleased:
		err = task.Complete()
	case valueobject.EscrowStatusRefunded:
		err = task.Cancel()
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return taskRepo.Update(ctx, task)
}
