package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type Dispute struct {
	ID               uuid.UUID
	EscrowID         uuid.UUID
	RaisedBy         uuid.UUID
	Reason           string
	Description      string
	Evidence         []string
	Status           valueobject.DisputeStatus
	Resolution       *string
	Outcome          *valueobject.EscrowStatus
	EscrowStatusPrev valueobject.EscrowStatus
	ResolvedBy       *uuid.UUID
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
}

func NewDispute(escrow *Escrow, raisedBy uuid.UUID, reason, description string, evidence []string) (*Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("dispute reason is required")
	}
	if !escrow.IsParticipant(raisedBy) {
		return nil, apperror.ErrForbidden
	}
	files := make([]string, 0, len(evidence))
	for _, e := range evidence {
		if e = strings.TrimSpace(e); e != "" {
			files = append(files, e)
		}
	}

	now := time.Now()
	return &Dispute{
		ID:               uuid.New(),
		EscrowID:         escrow.ID,
		RaisedBy:         raisedBy,
		Reason:           reason,
		Description:      strings.TrimSpace(description),
		Evidence:         files,
		Status:           valueobject.DisputeStatusOpen,
		EscrowStatusPrev: escrow.Status,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (d *Dispute) StartReview() error {
	if d.Status != valueobject.DisputeStatusOpen {
		return apperror.InvalidState("dispute", string(d.Status), "be taken under review")
	}
	d.Status = valueobject.DisputeStatusUnderReview
	d.UpdatedAt = time.Now()
	return nil
}

func (d *Dispute) Resolve(adminID uuid.UUID, outcome valueobject.EscrowStatus, resolution string) error {
	if d.Status == valueobject.DisputeStatusResolved {
		return apperror.InvalidState("dispute", string(d.Status), "be resolved")
	}
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return apperror.Validation("resolution text is required")
	}
	now := time.Now()
	d.Status = valueobject.DisputeStatusResolved
	d.Resolution = &resolution
	d.Outcome = &outcome
	d.ResolvedBy = &adminID
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

func (d *Dispute) IsActive() bool {
	return d.Status != valueobject.DisputeStatusResolved
}
