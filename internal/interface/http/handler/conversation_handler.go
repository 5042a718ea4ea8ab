package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/usecase/conversation"
)

type ConversationHandler struct {
	listMyConvsUC  *conversation.ListMyConversationsUseCase
	sendMessageUC  *conversation.SendMessageUseCase
	listMessagesUC *conversation.ListMessagesUseCase
}

func NewConversationHandler(
	listMyConvsUC *conversation.ListMyConversationsUseCase,
	sendMessageUC *conversation.SendMessageUseCase,
	listMessagesUC *conversation.ListMessagesUseCase,
) *ConversationHandler {
	return &ConversationHandler{
		listMyConvsUC:  listMyConvsUC,
		sendMessageUC:  sendMessageUC,
		listMessagesUC: listMessagesUC,
	}
}

func (h *ConversationHandler) ListMyConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	convs, err := h.listMyConvsUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToConversationResponses(convs))
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.sendMessageUC.Execute(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToMessageResponse(msg))
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	limit, offset := pageParams(c, 50)
	msgs, err := h.listMessagesUC.Execute(c.Request.Context(), conversationID, userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMessageResponses(msgs))
}
