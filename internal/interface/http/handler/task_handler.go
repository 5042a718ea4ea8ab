package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/task"
)

type TaskHandler struct {
	createTaskUC *task.CreateTaskUseCase
	listTasksUC  *task.ListTasksUseCase
	getTaskUC    *task.GetTaskUseCase
}

func NewTaskHandler(
	createTaskUC *task.CreateTaskUseCase,
	listTasksUC *task.ListTasksUseCase,
	getTaskUC *task.GetTaskUseCase,
) *TaskHandler {
	return &TaskHandler{
		createTaskUC: createTaskUC,
		listTasksUC:  listTasksUC,
		getTaskUC:    getTaskUC,
	}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	budgetType, err := valueobject.NewBudgetType(req.BudgetType)
	if err != nil {
		response.Error(c, err)
		return
	}

	t, err := h.createTaskUC.Execute(c.Request.Context(), task.CreateTaskInput{
		ClientID:    userID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		BudgetType:  budgetType,
		Currency:    req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToTaskResponse(t))
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	limit, offset := pageParams(c, 20)

	tasks, total, err := h.listTasksUC.Execute(c.Request.Context(), task.ListTasksInput{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToTaskResponses(tasks), total, limit, offset)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	t, err := h.getTaskUC.Execute(c.Request.Context(), taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTaskResponse(t))
}
