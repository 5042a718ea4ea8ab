package task

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

type CreateTaskInput struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	Budget      int64
	BudgetType  valueobject.BudgetType
	Currency    string
}

type CreateTaskUseCase struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

func NewCreateTaskUseCase(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *CreateTaskUseCase {
	return &CreateTaskUseCase{taskRepo: taskRepo, userRepo: userRepo}
}

func (uc *CreateTaskUseCase) Execute(ctx context.Context, in CreateTaskInput) (*entity.Task, error) {
	user, err := uc.userRepo.FindByID(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if user.Role == valueobject.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "only clients can post tasks")
	}

	t, err := entity.NewTask(in.ClientID, in.Title, in.Description, in.Budget, in.BudgetType, in.Currency)
	if err != nil {
		return nil, err
	}
	if err := uc.taskRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

type ListTasksInput struct {
	Status string
	Search string
	Limit  int
	Offset int
}

type ListTasksUseCase struct {
	taskRepo repository.TaskRepository
}

func NewListTasksUseCase(taskRepo repository.TaskRepository) *ListTasksUseCase {
	return &ListTasksUseCase{taskRepo: taskRepo}
}

// Execute lists open tasks unless another status is asked for.
func (uc *ListTasksUseCase) Execute(ctx context.Context, in ListTasksInput) ([]*entity.Task, int, error) {
	status := valueobject.TaskStatusOpen
	if s := strings.TrimSpace(in.Status); s != "" {
		status = valueobject.TaskStatus(s)
		if !status.IsValid() {
			return nil, 0, apperror.Validation("invalid task status")
		}
	}
	filter := repository.TaskFilter{
		Status: &status,
		Search: strings.TrimSpace(in.Search),
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.taskRepo.List(ctx, filter)
}

type GetTaskUseCase struct {
	taskRepo repository.TaskRepository
}

func NewGetTaskUseCase(taskRepo repository.TaskRepository) *GetTaskUseCase {
	return &GetTaskUseCase{taskRepo: taskRepo}
}

func (uc *GetTaskUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	return uc.taskRepo.FindByID(ctx, id)
}
