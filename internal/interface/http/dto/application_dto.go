package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/application"
)

type ApplyRequest struct {
	ProposedBudget    int64  `json:"proposed_budget" binding:"required,gt=0"`
	BudgetType        string `json:"budget_type"`
	CoverLetter       string `json:"cover_letter" binding:"required"`
	EstimatedDuration string `json:"estimated_duration"`
}

// AcceptRequest hires the applicant. Amount overrides the proposed budget;
// milestones may be sent now or added before funding.
type AcceptRequest struct {
	PaymentType string             `json:"payment_type"`
	Amount      int64              `json:"amount" binding:"gte=0"`
	Milestones  []MilestoneRequest `json:"milestones" binding:"dive"`
}

type ApplicationResponse struct {
	ID                uuid.UUID  `json:"id"`
	TaskID            uuid.UUID  `json:"task_id"`
	FreelancerID      uuid.UUID  `json:"freelancer_id"`
	ProposedBudget    int64      `json:"proposed_budget"`
	BudgetType        string     `json:"budget_type"`
	CoverLetter       string     `json:"cover_letter"`
	EstimatedDuration string     `json:"estimated_duration,omitempty"`
	Status            string     `json:"status"`
	AppliedAt         time.Time  `json:"applied_at"`
	RespondedAt       *time.Time `json:"responded_at,omitempty"`
}

type AcceptResponse struct {
	Application    ApplicationResponse  `json:"application"`
	Escrow         EscrowResponse       `json:"escrow"`
	Conversation   ConversationResponse `json:"conversation"`
	RejectedOthers int                  `json:"rejected_others"`
}

func ToApplicationResponse(a *entity.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:                a.ID,
		TaskID:            a.TaskID,
		FreelancerID:      a.FreelancerID,
		ProposedBudget:    a.ProposedBudget,
		BudgetType:        string(a.BudgetType),
		CoverLetter:       a.CoverLetter,
		EstimatedDuration: a.EstimatedDuration,
		Status:            string(a.Status),
		AppliedAt:         a.AppliedAt,
		RespondedAt:       a.RespondedAt,
	}
}

func ToApplicationResponses(apps []*entity.Application) []ApplicationResponse {
	return mapAll(apps, ToApplicationResponse)
}

func ToAcceptResponse(r *application.AcceptResult) AcceptResponse {
	return AcceptResponse{
		Application:    ToApplicationResponse(r.Application),
		Escrow:         ToEscrowResponse(r.Escrow),
		Conversation:   ToConversationResponse(r.Conversation),
		RejectedOthers: len(r.Rejected),
	}
}
