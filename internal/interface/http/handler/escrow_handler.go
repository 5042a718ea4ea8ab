package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/http/middleware"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/milestone"
)

type EscrowHandler struct {
	createUC       *escrow.CreateEscrowUseCase
	fundUC         *escrow.FundEscrowUseCase
	startUC        *escrow.StartWorkUseCase
	completeUC     *escrow.MarkCompletedUseCase
	releaseUC      *escrow.ReleaseFundsUseCase
	refundUC       *escrow.RefundUseCase
	getUC          *escrow.GetEscrowUseCase
	listMineUC     *escrow.ListMyEscrowsUseCase
	raiseDisputeUC *escrow.RaiseDisputeUseCase
	addMilestoneUC *milestone.AddMilestoneUseCase
	progressUC     *milestone.ProgressUseCase
}

type EscrowUseCases struct {
	Create       *escrow.CreateEscrowUseCase
	Fund         *escrow.FundEscrowUseCase
	Start        *escrow.StartWorkUseCase
	Complete     *escrow.MarkCompletedUseCase
	Release      *escrow.ReleaseFundsUseCase
	Refund       *escrow.RefundUseCase
	Get          *escrow.GetEscrowUseCase
	ListMine     *escrow.ListMyEscrowsUseCase
	RaiseDispute *escrow.RaiseDisputeUseCase
	AddMilestone *milestone.AddMilestoneUseCase
	Progress     *milestone.ProgressUseCase
}

func NewEscrowHandler(uc EscrowUseCases) *EscrowHandler {
	return &EscrowHandler{
		createUC:       uc.Create,
		fundUC:         uc.Fund,
		startUC:        uc.Start,
		completeUC:     uc.Complete,
		releaseUC:      uc.Release,
		refundUC:       uc.Refund,
		getUC:          uc.Get,
		listMineUC:     uc.ListMine,
		raiseDisputeUC: uc.RaiseDispute,
		addMilestoneUC: uc.AddMilestone,
		progressUC:     uc.Progress,
	}
}

func (h *EscrowHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateEscrowRequest
	if !bindJSON(c, &req) {
		return
	}

	taskID, err := dto.ParseUUID("task_id", req.TaskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	freelancerID, err := dto.ParseUUID("freelancer_id", req.FreelancerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	applicationID, err := dto.ParseOptionalUUID("application_id", req.ApplicationID)
	if err != nil {
		response.Error(c, err)
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

	e, err := h.createUC.Execute(c.Request.Context(), escrow.CreateEscrowInput{
		ClientID:       userID,
		TaskID:         taskID,
		FreelancerID:   freelancerID,
		ApplicationID:  applicationID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentType:    paymentType,
		Milestones:     milestones,
		IdempotencyKey: c.GetHeader(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToEscrowResponse(e))
}

func (h *EscrowHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	details, err := h.getUC.Execute(c.Request.Context(), escrowID, userID, isAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowDetailsResponse(details))
}

func (h *EscrowHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.listMineUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponses(items))
}

func (h *EscrowHandler) Fund(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.FundEscrowRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.fundUC.Execute(c.Request.Context(), escrowID, userID, req.PaymentReference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(e))
}

func (h *EscrowHandler) Start(c *gin.Context) {
	h.transition(c, h.startUC.Execute)
}

func (h *EscrowHandler) Complete(c *gin.Context) {
	h.transition(c, h.completeUC.Execute)
}

func (h *EscrowHandler) Release(c *gin.Context) {
	h.transition(c, h.releaseUC.Execute)
}

func (h *EscrowHandler) Refund(c *gin.Context) {
	h.transition(c, h.refundUC.Execute)
}

func (h *EscrowHandler) transition(c *gin.Context, run func(ctx context.Context, escrowID, userID uuid.UUID) (*entity.Escrow, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	e, err := run(c.Request.Context(), escrowID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(e))
}

func (h *EscrowHandler) RaiseDispute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.RaiseDisputeRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.raiseDisputeUC.Execute(c.Request.Context(), escrow.RaiseDisputeInput{
		EscrowID:    escrowID,
		UserID:      userID,
		Reason:      req.Reason,
		Description: req.Description,
		Evidence:    req.Evidence,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToDisputeResponse(d))
}

func (h *EscrowHandler) AddMilestone(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.AddMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	escrowID, err := dto.ParseUUID("escrow_id", req.EscrowID)
	if err != nil {
		response.Error(c, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		response.Error(c, err)
		return
	}

	m, err := h.addMilestoneUC.Execute(c.Request.Context(), milestone.AddMilestoneInput{
		EscrowID:     escrowID,
		ClientID:     userID,
		Title:        in.Title,
		Description:  in.Description,
		Amount:       in.Amount,
		DueDate:      in.DueDate,
		Deliverables: in.Deliverables,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToMilestoneResponse(m))
}

func (h *EscrowHandler) Progress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	escrowID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.progressUC.Execute(c.Request.Context(), escrowID, userID, isAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, p)
}
