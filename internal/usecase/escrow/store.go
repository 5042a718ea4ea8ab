package escrow

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

const (
	EventEscrowUpdated   = "escrow.updated"
	EventEscrowDisputed  = "escrow.disputed"
	EventDisputeResolved = "dispute.resolved"
	EventMilestone       = "milestone.updated"
)

// Notifier pushes an event to every connection of one user.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

type Recorder interface {
	EscrowTransition(from, to string)
	LedgerBooked(kind, currency string, amount int64)
}

// Receipt collects what one transaction did to an escrow so it can be
// published once the transaction has committed.
type Receipt struct {
	Escrow  *entity.Escrow
	Changes []entity.StatusChange
	Entries []*entity.LedgerEntry
}

// Store persists escrows together with their audit trail and ledger.
// Milestone and application use cases share it.
type Store struct {
	tx         repository.Transactor
	escrows    repository.EscrowRepository
	milestones repository.MilestoneRepository
	ledger     repository.LedgerRepository
	notifier   Notifier
	recorder   Recorder
}

func NewStore(
	tx repository.Transactor,
	escrows repository.EscrowRepository,
	milestones repository.MilestoneRepository,
	ledger repository.LedgerRepository,
	notifier Notifier,
	recorder Recorder,
) *Store {
	return &Store{
		tx:         tx,
		escrows:    escrows,
		milestones: milestones,
		ledger:     ledger,
		notifier:   notifier,
		recorder:   recorder,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.WithinTx(ctx, fn)
}

func (s *Store) Escrows() repository.EscrowRepository {
	return s.escrows
}

func (s *Store) Milestones() repository.MilestoneRepository {
	return s.milestones
}

// Create inserts a pending escrow and its milestones. Call it inside WithinTx.
func (s *Store) Create(ctx context.Context, r *Receipt, milestones []*entity.Milestone, actor *uuid.UUID) error {
	if err := s.escrows.Create(ctx, r.Escrow); err != nil {
		return err
	}
	if len(milestones) > 0 {
		if err := s.milestones.CreateBatch(ctx, milestones); err != nil {
			return err
		}
	}
	created := entity.StatusChange{To: r.Escrow.Status, At: r.Escrow.CreatedAt}
	r.Changes = append(r.Changes, created)
	return s.escrows.AppendEvents(ctx, r.Escrow.ID, actor, []entity.StatusChange{created})
}

// Save writes the escrow with a version check and records its pending transitions.
func (s *Store) Save(ctx context.Context, r *Receipt, actor *uuid.UUID) error {
	changes := r.Escrow.PullChanges()
	if err := s.escrows.Update(ctx, r.Escrow); err != nil {
		return err
	}
	if err := s.escrows.AppendEvents(ctx, r.Escrow.ID, actor, changes); err != nil {
		return err
	}
	r.Changes = append(r.Changes, changes...)
	return nil
}

// Book appends a ledger entry. Zero amounts are skipped.
func (s *Store) Book(ctx context.Context, r *Receipt, userID uuid.UUID, kind entity.LedgerKind, amount int64, milestoneID *uuid.UUID) error {
	if amount <= 0 {
		return nil
	}
	entry := entity.NewLedgerEntry(r.Escrow, userID, kind, amount)
	entry.MilestoneID = milestoneID
	if err := s.ledger.Append(ctx, entry); err != nil {
		return err
	}
	r.Entries = append(r.Entries, entry)
	return nil
}

// Publish logs, counts and broadcasts a committed receipt.
func (s *Store) Publish(ctx context.Context, r *Receipt, event string, payload any) {
	log := logger.FromContext(ctx).WithField("escrow_id", r.Escrow.ID)
	for _, c := range r.Changes {
		log.WithFields(logrus.Fields{"from": c.From, "to": c.To}).Info("escrow transition")
		if s.recorder != nil {
			s.recorder.EscrowTransition(string(c.From), string(c.To))
		}
	}
	for _, e := range r.Entries {
		log.WithFields(logrus.Fields{"kind": e.Kind, "amount": e.Amount, "user_id": e.UserID}).Info("ledger entry booked")
		if s.recorder != nil {
			s.recorder.LedgerBooked(string(e.Kind), e.Currency, e.Amount)
		}
	}

	if s.notifier == nil {
		return
	}
	if payload == nil {
		payload = statusPayload(r.Escrow)
	}
	for _, userID := range []uuid.UUID{r.Escrow.ClientID, r.Escrow.FreelancerID} {
		if err := s.notifier.BroadcastToUser(userID, event, payload); err != nil {
			log.WithError(err).Warn("failed to push escrow event")
		}
	}
}

func statusPayload(e *entity.Escrow) map[string]any {
	return map[string]any{
		"escrow_id":       e.ID,
		"task_id":         e.TaskID,
		"status":          e.Status,
		"released_amount": e.ReleasedAmount,
		"amount":          e.Amount.Amount,
		"currency":        e.Amount.Currency,
	}
}
