package entity

import (
	"time"

	"github.com/google/uuid"
)

type LedgerKind string

const (
	LedgerKindFund             LedgerKind = "fund"
	LedgerKindMilestoneRelease LedgerKind = "milestone_release"
	LedgerKindRelease          LedgerKind = "release"
	LedgerKindRefund           LedgerKind = "refund"
)

// LedgerEntry records money moving in or out of an escrow. UserID is the counterparty.
type LedgerEntry struct {
	ID          uuid.UUID
	EscrowID    uuid.UUID
	UserID      uuid.UUID
	MilestoneID *uuid.UUID
	Kind        LedgerKind
	Amount      int64
	Currency    string
	CreatedAt   time.Time
}

func NewLedgerEntry(escrow *Escrow, userID uuid.UUID, kind LedgerKind, amount int64) *LedgerEntry {
	return &LedgerEntry{
		ID:        uuid.New(),
		EscrowID:  escrow.ID,
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Currency:  escrow.Amount.Currency,
		CreatedAt: time.Now(),
	}
}

// EscrowEvent is a persisted status change with its actor.
type EscrowEvent struct {
	ID        uuid.UUID
	EscrowID  uuid.UUID
	ActorID   *uuid.UUID
	From      string
	To        string
	CreatedAt time.Time
}
