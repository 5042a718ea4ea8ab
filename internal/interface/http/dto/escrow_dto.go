package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
)

type MilestoneRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	Amount       int64    `json:"amount" binding:"required,gt=0"`
	DueDate      *string  `json:"due_date"`
	Deliverables []string `json:"deliverables"`
}

func (r MilestoneRequest) ToInput() (escrow.MilestoneInput, error) {
	due, err := ParseDate("due_date", r.DueDate)
	if err != nil {
		return escrow.MilestoneInput{}, err
	}
	return escrow.MilestoneInput{
		Title:        r.Title,
		Description:  r.Description,
		Amount:       r.Amount,
		DueDate:      due,
		Deliverables: r.Deliverables,
	}, nil
}

func MilestoneInputs(reqs []MilestoneRequest) ([]escrow.MilestoneInput, error) {
	out := make([]escrow.MilestoneInput, 0, len(reqs))
	for _, r := range reqs {
		in, err := r.ToInput()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

type CreateEscrowRequest struct {
	TaskID        string             `json:"task_id" binding:"required"`
	FreelancerID  string             `json:"freelancer_id" binding:"required"`
	ApplicationID *string            `json:"application_id"`
	Amount        int64              `json:"amount" binding:"required,gt=0"`
	Currency      string             `json:"currency"`
	PaymentType   string             `json:"payment_type"`
	Milestones    []MilestoneRequest `json:"milestones" binding:"dive"`
}

type AddMilestoneRequest struct {
	EscrowID string `json:"escrow_id" binding:"required"`
	MilestoneRequest
}

type FundEscrowRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

type RaiseDisputeRequest struct {
	Reason      string   `json:"reason" binding:"required"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
}

type ResolveDisputeRequest struct {
	Outcome    string `json:"outcome" binding:"required"`
	Resolution string `json:"resolution" binding:"required"`
}

type SubmitMilestoneRequest struct {
	Files []string `json:"files"`
	Notes string   `json:"notes"`
}

type RejectMilestoneRequest struct {
	Feedback string `json:"feedback"`
}

type EscrowResponse struct {
	ID               uuid.UUID  `json:"id"`
	TaskID           uuid.UUID  `json:"task_id"`
	ClientID         uuid.UUID  `json:"client_id"`
	FreelancerID     uuid.UUID  `json:"freelancer_id"`
	ApplicationID    *uuid.UUID `json:"application_id,omitempty"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	PaymentType      string     `json:"payment_type"`
	Status           string     `json:"status"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	ReleasedAmount   int64      `json:"released_amount"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	FundedAt         *time.Time `json:"funded_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
}

type MilestoneResponse struct {
	ID           uuid.UUID           `json:"id"`
	EscrowID     uuid.UUID           `json:"escrow_id"`
	Position     int                 `json:"position"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Amount       int64               `json:"amount"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	Status       string              `json:"status"`
	Deliverables []string            `json:"deliverables"`
	Submissions  []entity.Submission `json:"submissions"`
	Feedback     *string             `json:"feedback,omitempty"`
	ApprovedAt   *time.Time          `json:"approved_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type DisputeResponse struct {
	ID          uuid.UUID  `json:"id"`
	EscrowID    uuid.UUID  `json:"escrow_id"`
	RaisedBy    uuid.UUID  `json:"raised_by"`
	Reason      string     `json:"reason"`
	Description string     `json:"description,omitempty"`
	Evidence    []string   `json:"evidence"`
	Status      string     `json:"status"`
	Resolution  *string    `json:"resolution,omitempty"`
	Outcome     *string    `json:"outcome,omitempty"`
	ResolvedBy  *uuid.UUID `json:"resolved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

type LedgerEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	MilestoneID *uuid.UUID `json:"milestone_id,omitempty"`
	Kind        string     `json:"kind"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	CreatedAt   time.Time  `json:"created_at"`
}

type EscrowEventResponse struct {
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	CreatedAt time.Time  `json:"created_at"`
}

type EscrowDetailsResponse struct {
	EscrowResponse
	Milestones []MilestoneResponse      `json:"milestones"`
	Progress   entity.MilestoneProgress `json:"progress"`
	Disputes   []DisputeResponse        `json:"disputes"`
	Ledger     []LedgerEntryResponse    `json:"ledger"`
	Events     []EscrowEventResponse    `json:"events"`
}

func ToEscrowResponse(e *entity.Escrow) EscrowResponse {
	return EscrowResponse{
		ID:               e.ID,
		TaskID:           e.TaskID,
		ClientID:         e.ClientID,
		FreelancerID:     e.FreelancerID,
		ApplicationID:    e.ApplicationID,
		Amount:           e.Amount.Amount,
		Currency:         e.Amount.Currency,
		PaymentType:      string(e.PaymentType),
		Status:           string(e.Status),
		PaymentReference: e.PaymentReference,
		ReleasedAmount:   e.ReleasedAmount,
		Version:          e.Version,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		FundedAt:         e.FundedAt,
		CompletedAt:      e.CompletedAt,
		ReleasedAt:       e.ReleasedAt,
		RefundedAt:       e.RefundedAt,
	}
}

func ToEscrowResponses(items []*entity.Escrow) []EscrowResponse {
	return mapAll(items, ToEscrowResponse)
}

func ToMilestoneResponse(m *entity.Milestone) MilestoneResponse {
	subs := m.Submissions
	if subs == nil {
		subs = []entity.Submission{}
	}
	return MilestoneResponse{
		ID:           m.ID,
		EscrowID:     m.EscrowID,
		Position:     m.Position,
		Title:        m.Title,
		Description:  m.Description,
		Amount:       m.Amount,
		DueDate:      m.DueDate,
		Status:       string(m.Status),
		Deliverables: emptyIfNil(m.Deliverables),
		Submissions:  subs,
		Feedback:     m.Feedback,
		ApprovedAt:   m.ApprovedAt,
		CreatedAt:    m.CreatedAt,
	}
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	resp := DisputeResponse{
		ID:          d.ID,
		EscrowID:    d.EscrowID,
		RaisedBy:    d.RaisedBy,
		Reason:      d.Reason,
		Description: d.Description,
		Evidence:    emptyIfNil(d.Evidence),
		Status:      string(d.Status),
		Resolution:  d.Resolution,
		ResolvedBy:  d.ResolvedBy,
		CreatedAt:   d.CreatedAt,
		ResolvedAt:  d.ResolvedAt,
	}
	if d.Outcome != nil {
		outcome := string(*d.Outcome)
		resp.Outcome = &outcome
	}
	return resp
}

func ToDisputeResponses(items []*entity.Dispute) []DisputeResponse {
	return mapAll(items, ToDisputeResponse)
}

func ToEscrowDetailsResponse(d *escrow.EscrowDetails) EscrowDetailsResponse {
	return EscrowDetailsResponse{
		EscrowResponse: ToEscrowResponse(d.Escrow),
		Milestones:     mapAll(d.Milestones, ToMilestoneResponse),
		Progress:       d.Progress,
		Disputes:       ToDisputeResponses(d.Disputes),
		Ledger: mapAll(d.Ledger, func(l *entity.LedgerEntry) LedgerEntryResponse {
			return LedgerEntryResponse{
				ID:          l.ID,
				UserID:      l.UserID,
				MilestoneID: l.MilestoneID,
				Kind:        string(l.Kind),
				Amount:      l.Amount,
				Currency:    l.Currency,
				CreatedAt:   l.CreatedAt,
			}
		}),
		Events: mapAll(d.Events, func(ev *entity.EscrowEvent) EscrowEventResponse {
			return EscrowEventResponse{ActorID: ev.ActorID, From: ev.From, To: ev.To, CreatedAt: ev.CreatedAt}
		}),
	}
}
