package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/task"
)

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	client := mem.SeedUser(valueobject.RoleClient)
	freelancer := mem.SeedUser(valueobject.RoleFreelancer)
	uc := task.NewCreateTaskUseCase(mem.Tasks(), mem.Users())

	created, err := uc.Execute(ctx, task.CreateTaskInput{
		ClientID:    client.ID,
		Title:       "Translate a contract",
		Description: "English to Yoruba, twelve pages",
		Budget:      75000,
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusOpen, created.Status)
	assert.Equal(t, valueobject.DefaultCurrency, created.Currency)
	assert.Equal(t, valueobject.BudgetTypeFixed, created.BudgetType)

	_, err = uc.Execute(ctx, task.CreateTaskInput{ClientID: freelancer.ID, Title: "Task", Description: "x", Budget: 1})
	assert.True(t, apperror.IsForbidden(err))

	_, err = uc.Execute(ctx, task.CreateTaskInput{ClientID: client.ID, Title: "ab", Description: "x", Budget: 1})
	assert.True(t, apperror.IsValidation(err))

	_, err = uc.Execute(ctx, task.CreateTaskInput{ClientID: client.ID, Title: "Valid title", Description: "x", Budget: -5})
	assert.True(t, apperror.IsValidation(err))
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	client := mem.SeedUser(valueobject.RoleClient)
	create := task.NewCreateTaskUseCase(mem.Tasks(), mem.Users())
	for _, title := range []string{"Logo design", "Website build", "Logo animation"} {
		_, err := create.Execute(ctx, task.CreateTaskInput{ClientID: client.ID, Title: title, Description: "details", Budget: 1000})
		require.NoError(t, err)
	}
	list := task.NewListTasksUseCase(mem.Tasks())

	items, total, err := list.Execute(ctx, task.ListTasksInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)

	items, total, err = list.Execute(ctx, task.ListTasksInput{Search: "logo", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 1)

	items, _, err = list.Execute(ctx, task.ListTasksInput{Status: "completed"})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = list.Execute(ctx, task.ListTasksInput{Status: "archived"})
	assert.True(t, apperror.IsValidation(err))
}
