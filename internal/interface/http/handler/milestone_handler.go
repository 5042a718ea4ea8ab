package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/milestone"
)

type MilestoneHandler struct {
	startUC   *milestone.StartMilestoneUseCase
	submitUC  *milestone.SubmitMilestoneUseCase
	approveUC *milestone.ApproveMilestoneUseCase
	rejectUC  *milestone.RejectMilestoneUseCase
}

func NewMilestoneHandler(
	startUC *milestone.StartMilestoneUseCase,
	submitUC *milestone.SubmitMilestoneUseCase,
	approveUC *milestone.ApproveMilestoneUseCase,
	rejectUC *milestone.RejectMilestoneUseCase,
) *MilestoneHandler {
	return &MilestoneHandler{
		startUC:   startUC,
		submitUC:  submitUC,
		approveUC: approveUC,
		rejectUC:  rejectUC,
	}
}

func (h *MilestoneHandler) Start(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	milestoneID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	m, err := h.startUC.Execute(c.Request.Context(), milestoneID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponse(m))
}

func (h *MilestoneHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	milestoneID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.submitUC.Execute(c.Request.Context(), milestone.SubmitMilestoneInput{
		MilestoneID:  milestoneID,
		FreelancerID: userID,
		Files:        req.Files,
		Notes:        req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponse(m))
}

func (h *MilestoneHandler) Approve(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	milestoneID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	m, err := h.approveUC.Execute(c.Request.Context(), milestoneID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponse(m))
}

// Reject sends the milestone back with feedback. Empty feedback is rejected by the use case.
func (h *MilestoneHandler) Reject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	milestoneID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.RejectMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.rejectUC.Execute(c.Request.Context(), milestoneID, userID, req.Feedback)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponse(m))
}
