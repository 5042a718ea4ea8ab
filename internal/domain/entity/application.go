package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type Application struct {
	ID                uuid.UUID
	TaskID            uuid.UUID
	FreelancerID      uuid.UUID
	ProposedBudget    int64
	BudgetType        valueobject.BudgetType
	CoverLetter       string
	EstimatedDuration string
	Status            valueobject.ApplicationStatus
	Version           int
	AppliedAt         time.Time
	RespondedAt       *time.Time
	UpdatedAt         time.Time
}

func NewApplication(taskID, freelancerID uuid.UUID, proposedBudget int64, budgetType valueobject.BudgetType, coverLetter, estimatedDuration string) (*Application, error) {
	coverLetter = strings.TrimSpace(coverLetter)
	if coverLetter == "" {
		return nil, apperror.Validation("cover letter is required")
	}
	if proposedBudget <= 0 {
		return nil, apperror.Validation("proposed budget must be positive")
	}
	if budgetType == "" {
		budgetType = valueobject.BudgetTypeFixed
	}

	now := time.Now()
	return &Application{
		ID:                uuid.New(),
		TaskID:            taskID,
		FreelancerID:      freelancerID,
		ProposedBudget:    proposedBudget,
		BudgetType:        budgetType,
		CoverLetter:       coverLetter,
		EstimatedDuration: strings.TrimSpace(estimatedDuration),
		Status:            valueobject.ApplicationStatusPending,
		Version:           1,
		AppliedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (a *Application) transition(to valueobject.ApplicationStatus, action string) error {
	if !a.Status.CanTransitionTo(to) {
		return apperror.InvalidState("application", string(a.Status), action)
	}
	now := time.Now()
	a.Status = to
	a.UpdatedAt = now
	if to != valueobject.ApplicationStatusWithdrawn {
		a.RespondedAt = &now
	}
	return nil
}

func (a *Application) Accept() error {
	return a.transition(valueobject.ApplicationStatusAccepted, "be accepted")
}

func (a *Application) Reject() error {
	return a.transition(valueobject.ApplicationStatusRejected, "be rejected")
}

func (a *Application) Interview() error {
	return a.transition(valueobject.ApplicationStatusInterviewing, "move to interview")
}

func (a *Application) Withdraw() error {
	return a.transition(valueobject.ApplicationStatusWithdrawn, "be withdrawn")
}

func (a *Application) IsOwnedBy(userID uuid.UUID) bool {
	return a.FreelancerID == userID
}
