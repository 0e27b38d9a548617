package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/app/services"
	"github.com/flexlog/flexchat/internal/middleware"
)

// TypingController handles typing indicator operations
type TypingController struct {
	typingService services.TypingService
}

// NewTypingController creates a new TypingController
func NewTypingController(typingService services.TypingService) *TypingController {
	return &TypingController{
		typingService: typingService,
	}
}

// SetTyping godoc
// @Summary Report typing activity
// @Description Reports input activity for the caller. The first report in a burst is debounced before any shared state is written; the indicator expires on its own if activity stops.
// @Tags typing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 202 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id}/typing [post]
func (c *TypingController) SetTyping(ctx *gin.Context) {
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

	c.typingService.SetTyping(ctx, conversationID, userID)
	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Typing activity recorded"}))
}

// ClearTyping godoc
// @Summary Clear the typing indicator
// @Description Ends the caller's typing indicator immediately, for example on send or when the input is emptied.
// @Tags typing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 202 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id}/typing [delete]
func (c *TypingController) ClearTyping(ctx *gin.Context) {
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

	c.typingService.ClearTyping(ctx, conversationID, userID)
	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Typing indicator cleared"}))
}

// GetTyping godoc
// @Summary List who is typing
// @Description Returns the non-expired typing indicators for a conversation, excluding the caller's own.
// @Tags typing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} dto.APIResponse{data=dto.TypingListResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 503 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id}/typing [get]
func (c *TypingController) GetTyping(ctx *gin.Context) {
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

	list, err := c.typingService.ListTyping(ctx, conversationID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list))
}
