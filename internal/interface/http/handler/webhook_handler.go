package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/identity"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/payment"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/escrow"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/verification"
)

const maxWebhookBody = 1 << 20

// WebhookHandler accepts signed callbacks from the payment and identity providers.
// The signature is checked against the raw body before anything is parsed.
type WebhookHandler struct {
	paymentSecret  string
	identitySecret string
	paymentUC      *escrow.PaymentWebhookUseCase
	identityUC     *verification.IdentityWebhookUseCase
}

func NewWebhookHandler(
	paymentSecret, identitySecret string,
	paymentUC *escrow.PaymentWebhookUseCase,
	identityUC *verification.IdentityWebhookUseCase,
) *WebhookHandler {
	return &WebhookHandler{
		paymentSecret:  paymentSecret,
		identitySecret: identitySecret,
		paymentUC:      paymentUC,
		identityUC:     identityUC,
	}
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "cannot read body")
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) Payment(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	if !payment.VerifySignature(h.paymentSecret, body, c.GetHeader(payment.SignatureHeader)) {
		response.Unauthorized(c, "invalid signature")
		return
	}

	event, err := payment.ParseWebhook(body)
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.paymentUC.Execute(c.Request.Context(), event.Event, event.Transaction())
	if err != nil {
		response.Error(c, err)
		return
	}

	if e == nil {
		response.Success(c, gin.H{"handled": false})
		return
	}
	logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
		"event":     event.Event,
		"reference": event.Data.Reference,
		"escrow_id": e.ID,
	}).Info("payment webhook applied")
	response.Success(c, gin.H{"handled": true, "escrow_id": e.ID, "status": e.Status})
}

func (h *WebhookHandler) Identity(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	if !identity.VerifySignature(h.identitySecret, body, c.GetHeader(identity.SignatureHeader)) {
		response.Unauthorized(c, "invalid signature")
		return
	}

	event, err := identity.ParseWebhook(body)
	if err != nil {
		response.Error(c, err)
		return
	}
	approved, err := event.Approved()
	if err != nil {
		response.Error(c, err)
		return
	}

	v, err := h.identityUC.Execute(c.Request.Context(), event.ReferenceID, approved)
	if err != nil {
		response.Error(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
		"reference":  event.ReferenceID,
		"request_id": v.ID,
		"status":     v.Status,
	}).Info("identity webhook applied")
	response.Success(c, gin.H{"handled": true, "request_id": v.ID, "status": v.Status})
}
