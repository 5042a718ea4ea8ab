package escrow

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type EscrowDetails struct {
	Escrow     *entity.Escrow
	Milestones []*entity.Milestone
	Progress   entity.MilestoneProgress
	Disputes   []*entity.Dispute
	Ledger     []*entity.LedgerEntry
	Events     []*entity.EscrowEvent
}

type GetEscrowUseCase struct {
	escrowRepo    repository.EscrowRepository
	milestoneRepo repository.MilestoneRepository
	disputeRepo   repository.DisputeRepository
	ledgerRepo    repository.LedgerRepository
}

func NewGetEscrowUseCase(
	escrowRepo repository.EscrowRepository,
	milestoneRepo repository.MilestoneRepository,
	disputeRepo repository.DisputeRepository,
	ledgerRepo repository.LedgerRepository,
) *GetEscrowUseCase {
	return &GetEscrowUseCase{
		escrowRepo:    escrowRepo,
		milestoneRepo: milestoneRepo,
		disputeRepo:   disputeRepo,
		ledgerRepo:    ledgerRepo,
	}
}

// Execute returns the escrow with everything hanging off it. Only participants and admins may read it.
func (uc *GetEscrowUseCase) Execute(ctx context.Context, escrowID, userID uuid.UUID, isAdmin bool) (*EscrowDetails, error) {
	e, err := uc.escrowRepo.FindByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !e.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	details := &EscrowDetails{Escrow: e}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ms, err := uc.milestoneRepo.FindByEscrowID(gctx, e.ID)
		details.Milestones = ms
		return err
	})
	g.Go(func() error {
		ds, err := uc.disputeRepo.FindByEscrowID(gctx, e.ID)
		details.Disputes = ds
		return err
	})
	g.Go(func() error {
		entries, err := uc.ledgerRepo.FindByEscrowID(gctx, e.ID)
		details.Ledger = entries
		return err
	})
	g.Go(func() error {
		events, err := uc.escrowRepo.ListEvents(gctx, e.ID)
		details.Events = events
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	details.Progress = entity.ProgressOf(details.Milestones)
	return details, nil
}

type ListMyEscrowsUseCase struct {
	escrowRepo repository.EscrowRepository
}

func NewListMyEscrowsUseCase(escrowRepo repository.EscrowRepository) *ListMyEscrowsUseCase {
	return &ListMyEscrowsUseCase{escrowRepo: escrowRepo}
}

func (uc *ListMyEscrowsUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]*entity.Escrow, error) {
	return uc.escrowRepo.FindByUserID(ctx, userID)
}
