package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/app/services"
	"github.com/flexlog/flexchat/internal/middleware"
)

// PresenceController handles presence operations
type PresenceController struct {
	presenceService services.PresenceService
}

// NewPresenceController creates a new PresenceController
func NewPresenceController(presenceService services.PresenceService) *PresenceController {
	return &PresenceController{
		presenceService: presenceService,
	}
}

// Heartbeat godoc
// @Summary Report presence
// @Description Refreshes the caller's presence. Clients beat on a fixed interval while connected; status is derived from elapsed time since the last beat, never stored.
// @Tags presence
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.HeartbeatRequest false "Active conversation"
// @Success 202 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /presence/heartbeat [post]
func (c *PresenceController) Heartbeat(ctx *gin.Context) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	var req dto.HeartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body").WithDetails(err.Error())))
		return
	}

	c.presenceService.Heartbeat(ctx, userID, req.ActiveConversationID)
	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Presence refreshed"}))
}

// Disconnect godoc
// @Summary Report departure
// @Description Marks the caller offline immediately instead of waiting out the inactivity threshold.
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Success 202 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /presence/disconnect [post]
func (c *PresenceController) Disconnect(ctx *gin.Context) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	c.presenceService.Disconnect(ctx, userID)
	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Marked offline"}))
}

// GetPresence godoc
// @Summary List online users
// @Description Returns users currently online or idle, optionally scoped to one conversation via the conversationId query parameter.
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Param conversationId query int false "Scope to a conversation"
// @Success 200 {object} dto.APIResponse{data=[]dto.PresenceResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 503 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /presence [get]
func (c *PresenceController) GetPresence(ctx *gin.Context) {
	if _, ok := middleware.UserIDFromContext(ctx); !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	var conversationID *int64
	if idStr := ctx.Query("conversationId"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid conversation ID")))
			return
		}
		conversationID = &id
	}

	presence, err := c.presenceService.FetchOnline(ctx, conversationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(presence))
}

// GetConversationPresence godoc
// @Summary List a conversation's online users
// @Description Returns users currently online or idle whose active conversation is this one.
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.PresenceResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 503 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /conversations/{id}/presence [get]
func (c *PresenceController) GetConversationPresence(ctx *gin.Context) {
	if _, ok := middleware.UserIDFromContext(ctx); !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	conversationID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid conversation ID")))
		return
	}

	presence, err := c.presenceService.FetchOnline(ctx, &conversationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(presence))
}
