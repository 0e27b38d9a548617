package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/app/services"
	"github.com/flexlog/flexchat/internal/middleware"
)

// MessageController handles message delivery operations
type MessageController struct {
	messageService services.MessageService
}

// NewMessageController creates a new MessageController
func NewMessageController(messageService services.MessageService) *MessageController {
	return &MessageController{
		messageService: messageService,
	}
}

// SendMessage godoc
// @Summary Send a message to a conversation
// @Description Submits a message through the delivery pipeline. The response carries the provisional id, the server id once persisted and the delivery status; a FAILED status means the payload is retained and retryable.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param request body dto.SendMessageRequest true "Message content"
// @Success 201 {object} dto.APIResponse{data=dto.ProvisionalMessageResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail} "Empty message or invalid media"
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Not a conversation member"
// @Router /conversations/{id}/messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	conversationID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid conversation ID")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	var req dto.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body").WithDetails(err.Error())))
		return
	}

	resp, err := c.messageService.Send(ctx, conversationID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// RetryMessage godoc
// @Summary Retry a failed message
// @Description Resubmits the retained payload of a failed send under the same provisional id.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "Provisional message ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProvisionalMessageResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Only the author may retry"
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Unknown provisional id"
// @Router /messages/{messageId}/retry [post]
func (c *MessageController) RetryMessage(ctx *gin.Context) {
	provisionalID := ctx.Param("messageId")
	if provisionalID == "" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Missing provisional ID")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	resp, err := c.messageService.Retry(ctx, userID, provisionalID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// PinMessage godoc
// @Summary Pin a message
// @Description Marks a message as pinned. Any conversation member may pin.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageId path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{messageId}/pin [post]
func (c *MessageController) PinMessage(ctx *gin.Context) {
	messageID, err := strconv.ParseInt(ctx.Param("messageId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid message ID")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	if err := c.messageService.Pin(ctx, messageID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Message pinned"}))
}

// UnpinMessage godoc
// @Summary Unpin a message
// @Description Removes the pinned flag. Requires the conversation admin role.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageId path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Admin role required"
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{messageId}/pin [delete]
func (c *MessageController) UnpinMessage(ctx *gin.Context) {
	messageID, err := strconv.ParseInt(ctx.Param("messageId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid message ID")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	if err := c.messageService.Unpin(ctx, messageID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Message unpinned"}))
}

// MarkMessageRead godoc
// @Summary Mark a message as read
// @Description Records that the caller has seen the message. Marking an already read message is a no-op.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageId path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{messageId}/read [post]
func (c *MessageController) MarkMessageRead(ctx *gin.Context) {
	messageID, err := strconv.ParseInt(ctx.Param("messageId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid message ID")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	if err := c.messageService.MarkRead(ctx, messageID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Message marked read"}))
}

// GetPinnedMessages godoc
// @Summary List pinned messages
// @Description Returns the pinned sub-view of a conversation, oldest first.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} dto.APIResponse{data=dto.PinnedMessagesResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id}/pinned [get]
func (c *MessageController) GetPinnedMessages(ctx *gin.Context) {
	conversationID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid conversation ID")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	messages, err := c.messageService.ListPinned(ctx, conversationID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PinnedMessagesResponse{
		ConversationID: conversationID,
		Messages:       messages,
	}))
}
