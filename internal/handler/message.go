package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"landprice/internal/model"
)

// Answerer answers one question
type Answerer interface {
	Answer(ctx context.Context, req *model.MessageRequest) (*model.MessageResponse, error)
}

// MessageHandler handles question-answering HTTP requests
type MessageHandler struct {
	answerer Answerer
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(answerer Answerer) *MessageHandler {
	return &MessageHandler{
		answerer: answerer,
	}
}

// Post handles POST /api/v1/messages
func (h *MessageHandler) Post(c *gin.Context) {
	var req model.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	zerolog.Ctx(ctx).Info().
		Bool("has_location", req.HasLocation()).
		Bool("is_point", req.TargetsPoint()).
		Msg("post_message")

	resp, err := h.answerer.Answer(ctx, &req)
	if err != nil {
		// details stay in the log
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to answer message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
