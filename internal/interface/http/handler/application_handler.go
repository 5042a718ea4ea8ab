package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/application"
)

type ApplicationHandler struct {
	applyUC       *application.ApplyUseCase
	acceptUC      *application.AcceptUseCase
	rejectUC      *application.RejectUseCase
	interviewUC   *application.InterviewUseCase
	withdrawUC    *application.WithdrawUseCase
	getUC         *application.GetUseCase
	listForTaskUC *application.ListForTaskUseCase
	listMineUC    *application.ListMineUseCase
}

func NewApplicationHandler(
	applyUC *application.ApplyUseCase,
	acceptUC *application.AcceptUseCase,
	rejectUC *application.RejectUseCase,
	interviewUC *application.InterviewUseCase,
	withdrawUC *application.WithdrawUseCase,
	getUC *application.GetUseCase,
	listForTaskUC *application.ListForTaskUseCase,
	listMineUC *application.ListMineUseCase,
) *ApplicationHandler {
	return &ApplicationHandler{
		applyUC:       applyUC,
		acceptUC:      acceptUC,
		rejectUC:      rejectUC,
		interviewUC:   interviewUC,
		withdrawUC:    withdrawUC,
		getUC:         getUC,
		listForTaskUC: listForTaskUC,
		listMineUC:    listMineUC,
	}
}

func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}

	budgetType, err := valueobject.NewBudgetType(req.BudgetType)
	if err != nil {
		response.Error(c, err)
		return
	}

	app, err := h.applyUC.Execute(c.Request.Context(), application.ApplyInput{
		TaskID:            taskID,
		FreelancerID:      userID,
		ProposedBudget:    req.ProposedBudget,
		BudgetType:        budgetType,
		CoverLetter:       req.CoverLetter,
		EstimatedDuration: req.EstimatedDuration,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToApplicationResponse(app))
}

func (h *ApplicationHandler) Accept(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	appID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.AcceptRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	paymentType, err := valueobject.NewPaymentType(req.PaymentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	milestones, err := dto.MilestoneInputs(req.Milestones)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.acceptUC.Execute(c.Request.Context(), application.AcceptInput{
		ApplicationID: appID,
		ClientID:      userID,
		PaymentType:   paymentType,
		Milestones:    milestones,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToAcceptResponse(result))
}

func (h *ApplicationHandler) Reject(c *gin.Context) {
	h.respond(c, h.rejectUC.Execute)
}

func (h *ApplicationHandler) Interview(c *gin.Context) {
	h.respond(c, h.interviewUC.Execute)
}

func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	h.respond(c, h.withdrawUC.Execute)
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	h.respond(c, h.getUC.Execute)
}

// respond runs a use case keyed by the :id application and the caller.
func (h *ApplicationHandler) respond(c *gin.Context, run func(ctx context.Context, appID, userID uuid.UUID) (*entity.Application, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	appID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	app, err := run(c.Request.Context(), appID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToApplicationResponse(app))
}

func (h *ApplicationHandler) ListForTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	apps, err := h.listForTaskUC.Execute(c.Request.Context(), taskID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToApplicationResponses(apps))
}

func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	apps, err := h.listMineUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToApplicationResponses(apps))
}
