package dto

// AddReactionRequest adds one emoji reaction to a message
type AddReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}
