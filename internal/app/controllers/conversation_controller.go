package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/app/services"
	"github.com/flexlog/flexchat/internal/middleware"
)

// ConversationController handles the composed conversation view
type ConversationController struct {
	conversationService services.ConversationService
}

// NewConversationController creates a new ConversationController
func NewConversationController(conversationService services.ConversationService) *ConversationController {
	return &ConversationController{
		conversationService: conversationService,
	}
}

// GetConversationView godoc
// @Summary Get the composed conversation view
// @Description Returns the message window with reply previews and reaction aggregates, current typing indicators and conversation presence in one response. Clients re-request this view when the change feed signals it dirty.
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param before query string false "Messages before this timestamp (RFC3339 format)"
// @Param limit query int false "Maximum number of messages (default: 50)" default(50)
// @Success 200 {object} dto.APIResponse{data=dto.ConversationViewResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Not a conversation member"
// @Router /conversations/{id}/view [get]
func (c *ConversationController) GetConversationView(ctx *gin.Context) {
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

	var before *time.Time
	if beforeStr := ctx.Query("before"); beforeStr != "" {
		beforeTime, err := time.Parse(time.RFC3339, beforeStr)
		if err == nil {
			before = &beforeTime
		}
	}

	limit := 0
	if limitStr := ctx.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	view, err := c.conversationService.ComposeView(ctx, conversationID, userID, before, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view))
}

// GetParticipants godoc
// @Summary List conversation participants
// @Description Returns the membership roster with display names and roles.
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.ParticipantResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Not a conversation member"
// @Router /conversations/{id}/participants [get]
func (c *ConversationController) GetParticipants(ctx *gin.Context) {
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

	participants, err := c.conversationService.ListParticipants(ctx, conversationID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(participants))
}
