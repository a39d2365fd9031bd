package handler

import (
	"github.com/labstack/echo/v4"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/usecase"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/response"
	"fazaachat/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createConversationRequest struct {
	ConversationID string `json:"conversation_id"`
	OrderID        string `json:"order_id"`
	ReceiverID     string `json:"receiver_id" validate:"required"`
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// currentSession builds the session of the authenticated caller.
func currentSession(c echo.Context) (entity.Session, error) {
	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return entity.Session{}, errors.Unauthorized("Authentication required", nil)
	}
	return entity.Session{CurrentUserID: uid}, nil
}

// CreateConversation opens the chat for an accepted order
func (h *ChatHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.CreateConversation(c.Request().Context(), session, usecase.CreateConversationInput{
		ConversationID: req.ConversationID,
		OrderID:        req.OrderID,
		ReceiverID:     req.ReceiverID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conv)
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	convs, err := h.chatUseCase.ListConversations(c.Request().Context(), session)
	if err != nil {
		return response.Error(c, err)
	}
	page := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(convs, page), int64(len(convs)), page.Page, page.PageSize)
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.GetConversation(c.Request().Context(), session, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	msgs, err := h.chatUseCase.GetMessages(c.Request().Context(), session, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, msgs)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	msg, err := h.chatUseCase.SendMessage(c.Request().Context(), session, c.Param("id"), req.Message)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}
