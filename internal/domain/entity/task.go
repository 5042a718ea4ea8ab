package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type Task struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Title       string
	Description string
	Budget      int64
	BudgetType  valueobject.BudgetType
	Currency    string
	Status      valueobject.TaskStatus
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewTask(clientID uuid.UUID, title, description string, budget int64, budgetType valueobject.BudgetType, currency string) (*Task, error) {
	title = strings.TrimSpace(title)
	if len(title) < 3 || len(title) > 200 {
		return nil, apperror.Validation("title must be between 3 and 200 characters")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperror.Validation("description is required")
	}
	money, err := valueobject.NewMoney(budget, currency)
	if err != nil {
		return nil, err
	}
	if budgetType == "" {
		budgetType = valueobject.BudgetTypeFixed
	}

	now := time.Now()
	return &Task{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Budget:      money.Amount,
		BudgetType:  budgetType,
		Currency:    money.Currency,
		Status:      valueobject.TaskStatusOpen,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (t *Task) StartWork() error {
	if !t.Status.CanTransitionTo(valueobject.TaskStatusInProgress) {
		return apperror.InvalidState("task", string(t.Status), "start work")
	}
	t.Status = valueobject.TaskStatusInProgress
	t.UpdatedAt = time.Now()
	return nil
}

func (t *Task) Complete() error {
	if !t.Status.CanTransitionTo(valueobject.TaskStatusCompleted) {
		return apperror.InvalidState("task", string(t.Status), "be completed")
	}
	t.Status = valueobject.TaskStatusCompleted
	t.UpdatedAt = time.Now()
	return nil
}

// Cancel closes the task. A refunded escrow cancels the task it paid for.
func (t *Task) Cancel() error {
	if !t.Status.CanTransitionTo(valueobject.TaskStatusCancelled) {
		return apperror.InvalidState("task", string(t.Status), "be cancelled")
	}
	t.Status = valueobject.TaskStatusCancelled
	t.UpdatedAt = time.Now()
	return nil
}

func (t *Task) IsOwnedBy(userID uuid.UUID) bool {
	return t.ClientID == userID
}

func (t *Task) IsOpen() bool {
	return t.Status == valueobject.TaskStatusOpen
}
