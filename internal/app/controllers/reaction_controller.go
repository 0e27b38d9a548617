package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/app/services"
	"github.com/flexlog/flexchat/internal/middleware"
)

// ReactionController handles emoji reaction operations
type ReactionController struct {
	reactionService services.ReactionService
}

// NewReactionController creates a new ReactionController
func NewReactionController(reactionService services.ReactionService) *ReactionController {
	return &ReactionController{
		reactionService: reactionService,
	}
}

// AddReaction godoc
// @Summary React to a message
// @Description Adds the caller's emoji reaction. Repeating the same reaction is a no-op; distinct emojis from the same user coexist.
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param messageId path int true "Message ID"
// @Param request body dto.AddReactionRequest true "Emoji"
// @Success 200 {object} dto.APIResponse{data=[]models.ReactionSummary}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{messageId}/reactions [post]
func (c *ReactionController) AddReaction(ctx *gin.Context) {
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

	var req dto.AddReactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request body").WithDetails(err.Error())))
		return
	}

	if err := c.reactionService.AddReaction(ctx, messageID, userID, req.Emoji); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	summaries, err := c.reactionService.ListForMessage(ctx, messageID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summaries))
}

// RemoveReaction godoc
// @Summary Remove a reaction
// @Description Removes the caller's emoji reaction from a message. Removing an absent reaction is a no-op.
// @Tags reactions
// @Produce json
// @Security BearerAuth
// @Param messageId path int true "Message ID"
// @Param emoji path string true "Emoji"
// @Success 200 {object} dto.APIResponse{data=[]models.ReactionSummary}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{messageId}/reactions/{emoji} [delete]
func (c *ReactionController) RemoveReaction(ctx *gin.Context) {
	messageID, err := strconv.ParseInt(ctx.Param("messageId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid message ID")))
		return
	}

	emoji := ctx.Param("emoji")
	if emoji == "" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Missing emoji")))
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	if err := c.reactionService.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	summaries, err := c.reactionService.ListForMessage(ctx, messageID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summaries))
}

// GetReactions godoc
// @Summary List reactions on a message
// @Description Returns the per-emoji aggregates for one message, ordered by count descending.
// @Tags reactions
// @Produce json
// @Security BearerAuth
// @Param messageId path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=[]models.ReactionSummary}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /messages/{messageId}/reactions [get]
func (c *ReactionController) GetReactions(ctx *gin.Context) {
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

	summaries, err := c.reactionService.ListForMessage(ctx, messageID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summaries))
}
