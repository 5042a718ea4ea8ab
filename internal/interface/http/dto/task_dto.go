package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
)

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Budget      int64  `json:"budget" binding:"required,gt=0"`
	BudgetType  string `json:"budget_type"`
	Currency    string `json:"currency"`
}

type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      int64     `json:"budget"`
	BudgetType  string    `json:"budget_type"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToTaskResponse(t *entity.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		ClientID:    t.ClientID,
		Title:       t.Title,
		Description: t.Description,
		Budget:      t.Budget,
		BudgetType:  string(t.BudgetType),
		Currency:    t.Currency,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func ToTaskResponses(tasks []*entity.Task) []TaskResponse {
	return mapAll(tasks, ToTaskResponse)
}
