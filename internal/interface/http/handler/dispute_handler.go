package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
)

// DisputeHandler serves the admin arbitration routes.
type DisputeHandler struct {
	reviewUC  *escrow.ReviewDisputeUseCase
	resolveUC *escrow.ResolveDisputeUseCase
	listUC    *escrow.ListActiveDisputesUseCase
}

func NewDisputeHandler(
	reviewUC *escrow.ReviewDisputeUseCase,
	resolveUC *escrow.ResolveDisputeUseCase,
	listUC *escrow.ListActiveDisputesUseCase,
) *DisputeHandler {
	return &DisputeHandler{reviewUC: reviewUC, resolveUC: resolveUC, listUC: listUC}
}

func (h *DisputeHandler) ListActive(c *gin.Context) {
	limit, offset := pageParams(c, 20)

	items, err := h.listUC.Execute(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponses(items))
}

func (h *DisputeHandler) Review(c *gin.Context) {
	disputeID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.reviewUC.Execute(c.Request.Context(), disputeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) Resolve(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	disputeID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := valueobject.NewEscrowStatus(req.Outcome)
	if err != nil {
		response.Error(c, err)
		return
	}

	d, err := h.resolveUC.Execute(c.Request.Context(), escrow.ResolveDisputeInput{
		DisputeID:  disputeID,
		AdminID:    adminID,
		Outcome:    outcome,
		Resolution: req.Resolution,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}
