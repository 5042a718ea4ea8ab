package milestone

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
)

type AddMilestoneInput struct {
	EscrowID     uuid.UUID
	ClientID     uuid.UUID
	Title        string
	Description  string
	Amount       int64
	DueDate      *time.Time
	Deliverables []string
}

// AddMilestoneUseCase grows the milestone set of a pending escrow.
// Funding later requires the set to match the escrow amount exactly.
type AddMilestoneUseCase struct {
	store *escrow.Store
}

func NewAddMilestoneUseCase(store *escrow.Store) *AddMilestoneUseCase {
	return &AddMilestoneUseCase{store: store}
}

func (uc *AddMilestoneUseCase) Execute(ctx context.Context, in AddMilestoneInput) (*entity.Milestone, error) {
	var created *entity.Milestone
	err := uc.store.WithinTx(ctx, func(ctx context.Context) error {
		e, err := uc.store.Escrows().FindByID(ctx, in.EscrowID)
		if err != nil {
			return err
		}
		if !e.IsClient(in.ClientID) {
			return apperror.ErrForbidden
		}
		if !e.IsMilestoneBased() {
			return apperror.Validation("escrow is not milestone based")
		}
		if e.Status != valueobject.EscrowStatusPending {
			return apperror.InvalidState("escrow", string(e.Status), "take new milestones")
		}

		existing, err := uc.store.Milestones().FindByEscrowID(ctx, e.ID)
		if err != nil {
			return err
		}
		position := 1
		for _, m := range existing {
			if m.Position >= position {
				position = m.Position + 1
			}
		}
		created, err = entity.NewMilestone(e.ID, position, entity.MilestoneDraft{
			Title:        in.Title,
			Description:  in.Description,
			Amount:       in.Amount,
			DueDate:      in.DueDate,
			Deliverables: in.Deliverables,
		})
		if err != nil {
			return err
		}
		total, err := entity.SumMilestones(append(existing, created))
		if err != nil {
			return err
		}
		if total > e.Amount.Amount {
			return apperror.Newf(apperror.ErrCodeValidation,
				"milestones would add up to %d, escrow amount is %d", total, e.Amount.Amount)
		}
		return uc.store.Milestones().CreateBatch(ctx, []*entity.Milestone{created})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// workOn loads a milestone and its escrow in a transaction, checks the actor and
// that the escrow is funded or in progress, runs fn and saves both records.
func workOn(ctx context.Context, store *escrow.Store, milestoneID, actorID uuid.UUID, asClient bool, fn func(ctx context.Context, m *entity.Milestone, r *escrow.Receipt) error) (*entity.Milestone, error) {
	var (
		receipt escrow.Receipt
		ms      *entity.Milestone
	)
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ms, err = store.Milestones().FindByID(ctx, milestoneID)
		if err != nil {
			return err
		}
		e, err := store.Escrows().FindByID(ctx, ms.EscrowID)
		if err != nil {
			return err
		}
		if (asClient && !e.IsClient(actorID)) || (!asClient && !e.IsFreelancer(actorID)) {
			return apperror.ErrForbidden
		}
		if e.Status != valueobject.EscrowStatusFunded && e.Status != valueobject.EscrowStatusInProgress {
			return apperror.InvalidState("escrow", string(e.Status), "have milestone work")
		}
		receipt.Escrow = e

		if err := fn(ctx, ms, &receipt); err != nil {
			return err
		}
		if err := store.Milestones().Update(ctx, ms); err != nil {
			return err
		}
		// The escrow row is always rewritten so concurrent work on sibling
		// milestones collides on its version.
		return store.Save(ctx, &receipt, &actorID)
	})
	if err != nil {
		return nil, err
	}
	store.Publish(ctx, &receipt, escrow.EventMilestone, map[string]any{
		"escrow_id":       receipt.Escrow.ID,
		"escrow_status":   receipt.Escrow.Status,
		"milestone_id":    ms.ID,
		"status":          ms.Status,
		"released_amount": receipt.Escrow.ReleasedAmount,
	})
	return ms, nil
}

// beginWork moves a funded escrow into progress when the first milestone work appears.
func beginWork(e *entity.Escrow) error {
	if e.Status == valueobject.EscrowStatusFunded {
		return e.StartWork()
	}
	return nil
}

type StartMilestoneUseCase struct {
	store *escrow.Store
}

func NewStartMilestoneUseCase(store *escrow.Store) *StartMilestoneUseCase {
	return &StartMilestoneUseCase{store: store}
}

func (uc *StartMilestoneUseCase) Execute(ctx context.Context, milestoneID, freelancerID uuid.UUID) (*entity.Milestone, error) {
	return workOn(ctx, uc.store, milestoneID, freelancerID, false, func(ctx context.Context, m *entity.Milestone, r *escrow.Receipt) error {
		if err := m.Start(); err != nil {
			return err
		}
		return beginWork(r.Escrow)
	})
}

type SubmitMilestoneInput struct {
	MilestoneID  uuid.UUID
	FreelancerID uuid.UUID
	Files        []string
	Notes        string
}

type SubmitMilestoneUseCase struct {
	store *escrow.Store
}

func NewSubmitMilestoneUseCase(store *escrow.Store) *SubmitMilestoneUseCase {
	return &SubmitMilestoneUseCase{store: store}
}

func (uc *SubmitMilestoneUseCase) Execute(ctx context.Context, in SubmitMilestoneInput) (*entity.Milestone, error) {
	return workOn(ctx, uc.store, in.MilestoneID, in.FreelancerID, false, func(ctx context.Context, m *entity.Milestone, r *escrow.Receipt) error {
		if err := m.Submit(in.Files, in.Notes); err != nil {
			return err
		}
		return beginWork(r.Escrow)
	})
}

// ApproveMilestoneUseCase approves the work and releases the milestone amount
// in the same transaction. The last approval completes the escrow.
type ApproveMilestoneUseCase struct {
	store *escrow.Store
}

func NewApproveMilestoneUseCase(store *escrow.Store) *ApproveMilestoneUseCase {
	return &ApproveMilestoneUseCase{store: store}
}

func (uc *ApproveMilestoneUseCase) Execute(ctx context.Context, milestoneID, clientID uuid.UUID) (*entity.Milestone, error) {
	return workOn(ctx, uc.store, milestoneID, clientID, true, func(ctx context.Context, m *entity.Milestone, r *escrow.Receipt) error {
		e := r.Escrow
		if err := m.Approve(); err != nil {
			return err
		}
		if err := e.RecordMilestoneRelease(m.Amount); err != nil {
			return err
		}
		if err := uc.store.Book(ctx, r, e.FreelancerID, entity.LedgerKindMilestoneRelease, m.Amount, &m.ID); err != nil {
			return err
		}

		siblings, err := uc.store.Milestones().FindByEscrowID(ctx, e.ID)
		if err != nil {
			return err
		}
		for i, s := range siblings {
			if s.ID == m.ID {
				siblings[i] = m
			}
		}
		if entity.ProgressOf(siblings).AllApproved() {
			return e.Complete()
		}
		return nil
	})
}

type RejectMilestoneUseCase struct {
	store *escrow.Store
}

func NewRejectMilestoneUseCase(store *escrow.Store) *RejectMilestoneUseCase {
	return &RejectMilestoneUseCase{store: store}
}

func (uc *RejectMilestoneUseCase) Execute(ctx context.Context, milestoneID, clientID uuid.UUID, feedback string) (*entity.Milestone, error) {
	return workOn(ctx, uc.store, milestoneID, clientID, true, func(ctx context.Context, m *entity.Milestone, r *escrow.Receipt) error {
		return m.Reject(feedback)
	})
}

type ProgressUseCase struct {
	store *escrow.Store
}

func NewProgressUseCase(store *escrow.Store) *ProgressUseCase {
	return &ProgressUseCase{store: store}
}

func (uc *ProgressUseCase) Execute(ctx context.Context, escrowID, userID uuid.UUID, isAdmin bool) (entity.MilestoneProgress, error) {
	e, err := uc.store.Escrows().FindByID(ctx, escrowID)
	if err != nil {
		return entity.MilestoneProgress{}, err
	}
	if !isAdmin && !e.IsParticipant(userID) {
		return entity.MilestoneProgress{}, apperror.ErrForbidden
	}
	milestones, err := uc.store.Milestones().FindByEscrowID(ctx, escrowID)
	if err != nil {
		return entity.MilestoneProgress{}, err
	}
	return entity.ProgressOf(milestones), nil
}
