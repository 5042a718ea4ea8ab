package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type Escrow struct {
	ID               uuid.UUID
	TaskID           uuid.UUID
	ClientID         uuid.UUID
	FreelancerID     uuid.UUID
	ApplicationID    *uuid.UUID
	Amount           valueobject.Money
	PaymentType      valueobject.PaymentType
	Status           valueobject.EscrowStatus
	PaymentReference *string
	ReleasedAmount   int64
	IdempotencyKey   *string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FundedAt         *time.Time
	CompletedAt      *time.Time
	ReleasedAt       *time.Time
	RefundedAt       *time.Time

	changes []StatusChange
}

// StatusChange is one recorded edge of the escrow state machine.
type StatusChange struct {
	From valueobject.EscrowStatus
	To   valueobject.EscrowStatus
	At   time.Time
}

type NewEscrowParams struct {
	TaskID         uuid.UUID
	ClientID       uuid.UUID
	FreelancerID   uuid.UUID
	ApplicationID  *uuid.UUID
	Amount         int64
	Currency       string
	PaymentType    valueobject.PaymentType
	IdempotencyKey string
}

func NewEscrow(p NewEscrowParams) (*Escrow, error) {
	money, err := valueobject.NewMoney(p.Amount, p.Currency)
	if err != nil {
		return nil, err
	}
	if p.ClientID == p.FreelancerID {
		return nil, apperror.Validation("client and freelancer must be different users")
	}
	if p.PaymentType == "" {
		p.PaymentType = valueobject.PaymentTypeFull
	}

	now := time.Now()
	e := &Escrow{
		ID:            uuid.New(),
		TaskID:        p.TaskID,
		ClientID:      p.ClientID,
		FreelancerID:  p.FreelancerID,
		ApplicationID: p.ApplicationID,
		Amount:        money,
		PaymentType:   p.PaymentType,
		Status:        valueobject.EscrowStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if key := strings.TrimSpace(p.IdempotencyKey); key != "" {
		e.IdempotencyKey = &key
	}
	return e, nil
}

func (e *Escrow) transition(to valueobject.EscrowStatus, action string) error {
	if !e.Status.CanTransitionTo(to) {
		return apperror.InvalidState("escrow", string(e.Status), action)
	}
	e.move(to)
	return nil
}

func (e *Escrow) move(to valueobject.EscrowStatus) {
	now := time.Now()
	e.changes = append(e.changes, StatusChange{From: e.Status, To: to, At: now})
	e.Status = to
	e.UpdatedAt = now
}

// Fund records the verified gateway reference and secures the funds.
func (e *Escrow) Fund(reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return apperror.Validation("payment reference is required")
	}
	if err := e.transition(valueobject.EscrowStatusFunded, "be funded"); err != nil {
		return err
	}
	e.PaymentReference = &reference
	e.FundedAt = stamp(e.UpdatedAt)
	return nil
}

func (e *Escrow) StartWork() error {
	return e.transition(valueobject.EscrowStatusInProgress, "start work")
}

// Complete marks the work done. A funded escrow passes through in_progress first.
func (e *Escrow) Complete() error {
	if e.Status == valueobject.EscrowStatusFunded {
		if err := e.StartWork(); err != nil {
			return err
		}
	}
	if err := e.transition(valueobject.EscrowStatusCompleted, "be completed"); err != nil {
		return err
	}
	e.CompletedAt = stamp(e.UpdatedAt)
	return nil
}

// Release pays out everything not yet released and returns that remainder.
func (e *Escrow) Release() (int64, error) {
	if err := e.transition(valueobject.EscrowStatusReleased, "be released"); err != nil {
		return 0, err
	}
	return e.payOut(), nil
}

func (e *Escrow) payOut() int64 {
	remainder := e.Amount.Amount - e.ReleasedAmount
	e.ReleasedAmount = e.Amount.Amount
	e.ReleasedAt = stamp(e.UpdatedAt)
	return remainder
}

// Refund returns the unreleased part of the funds to the client.
func (e *Escrow) Refund() (int64, error) {
	if err := e.transition(valueobject.EscrowStatusRefunded, "be refunded"); err != nil {
		return 0, err
	}
	return e.payBack(), nil
}

func (e *Escrow) payBack() int64 {
	e.RefundedAt = stamp(e.UpdatedAt)
	return e.Amount.Amount - e.ReleasedAmount
}

func (e *Escrow) Dispute() error {
	return e.transition(valueobject.EscrowStatusDisputed, "be disputed")
}

// ResolveDispute leaves the disputed state towards the arbitrated outcome.
func (e *Escrow) ResolveDispute(outcome valueobject.EscrowStatus) (int64, error) {
	if e.Status != valueobject.EscrowStatusDisputed {
		return 0, apperror.InvalidState("escrow", string(e.Status), "have a dispute resolved")
	}
	if !e.Status.CanResolveTo(outcome) {
		return 0, apperror.Validation("dispute outcome must be in_progress, released or refunded")
	}
	e.move(outcome)
	switch outcome {
	case valueobject.EscrowStatusReleased:
		return e.payOut(), nil
	case valueobject.EscrowStatusRefunded:
		return e.payBack(), nil
	}
	return 0, nil
}

// RecordMilestoneRelease books a partial payout for an approved milestone.
func (e *Escrow) RecordMilestoneRelease(amount int64) error {
	if e.PaymentType != valueobject.PaymentTypeMilestones {
		return apperror.Validation("escrow is not milestone based")
	}
	if e.Status != valueobject.EscrowStatusFunded && e.Status != valueobject.EscrowStatusInProgress {
		return apperror.InvalidState("escrow", string(e.Status), "release milestone funds")
	}
	if amount <= 0 || e.ReleasedAmount+amount > e.Amount.Amount {
		return apperror.Validation("milestone release exceeds escrow amount")
	}
	e.ReleasedAmount += amount
	e.UpdatedAt = time.Now()
	return nil
}

func stamp(t time.Time) *time.Time {
	return &t
}

// PullChanges returns and clears the transitions recorded since the last call.
func (e *Escrow) PullChanges() []StatusChange {
	out := e.changes
	e.changes = nil
	return out
}

func (e *Escrow) IsClient(userID uuid.UUID) bool {
	return e.ClientID == userID
}

func (e *Escrow) IsFreelancer(userID uuid.UUID) bool {
	return e.FreelancerID == userID
}

func (e *Escrow) IsParticipant(userID uuid.UUID) bool {
	return e.IsClient(userID) || e.IsFreelancer(userID)
}

func (e *Escrow) IsMilestoneBased() bool {
	return e.PaymentType == valueobject.PaymentTypeMilestones
}
