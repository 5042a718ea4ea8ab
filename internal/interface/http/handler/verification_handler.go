package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/domain/repository"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/verification"
)

type VerificationHandler struct {
	submitUC   *verification.SubmitUseCase
	approveUC  *verification.ApproveUseCase
	rejectUC   *verification.RejectUseCase
	listUC     *verification.ListRequestsUseCase
	listMineUC *verification.ListMineUseCase
	lookupUC   *verification.LookupNINUseCase
}

func NewVerificationHandler(
	submitUC *verification.SubmitUseCase,
	approveUC *verification.ApproveUseCase,
	rejectUC *verification.RejectUseCase,
	listUC *verification.ListRequestsUseCase,
	listMineUC *verification.ListMineUseCase,
	lookupUC *verification.LookupNINUseCase,
) *VerificationHandler {
	return &VerificationHandler{
		submitUC:   submitUC,
		approveUC:  approveUC,
		rejectUC:   rejectUC,
		listUC:     listUC,
		listMineUC: listMineUC,
		lookupUC:   lookupUC,
	}
}

func (h *VerificationHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SubmitVerificationRequest
	if !bindJSON(c, &req) {
		return
	}

	vType, err := valueobject.NewVerificationType(req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}

	v, err := h.submitUC.Execute(c.Request.Context(), verification.SubmitInput{
		UserID:       userID,
		Type:         vType,
		PersonalInfo: req.PersonalInfo,
		BusinessInfo: req.BusinessInfo,
		Documents:    req.DocumentEntities(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToVerificationResponse(v))
}

func (h *VerificationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.listMineUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToVerificationResponses(items))
}

func (h *VerificationHandler) ListRequests(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	filter := repository.VerificationFilter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewVerificationStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = &status
	}

	items, total, err := h.listUC.Execute(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToVerificationResponses(items), total, limit, offset)
}

func (h *VerificationHandler) Approve(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ReviewVerificationRequest
	if !bindJSON(c, &req) {
		return
	}
	requestID, err := dto.ParseUUID("request_id", req.RequestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	v, err := h.approveUC.Execute(c.Request.Context(), requestID, adminID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToVerificationResponse(v))
}

func (h *VerificationHandler) Reject(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ReviewVerificationRequest
	if !bindJSON(c, &req) {
		return
	}
	requestID, err := dto.ParseUUID("request_id", req.RequestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	v, err := h.rejectUC.Execute(c.Request.Context(), requestID, adminID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToVerificationResponse(v))
}

func (h *VerificationHandler) LookupNIN(c *gin.Context) {
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	v, result, err := h.lookupUC.Execute(c.Request.Context(), requestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToIdentityLookupResponse(v, result))
}
