package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/http/dto"
	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/store"
)

// QuestionService is the part of the orchestrator the HTTP layer needs.
type QuestionService interface {
	Ask(ctx context.Context, userID, question string) brain.Report
	History(ctx context.Context, userID string) ([]model.Turn, error)
}

type AskHandler struct {
	questions QuestionService
}

func NewAskHandler(questions QuestionService) *AskHandler {
	return &AskHandler{questions: questions}
}

// Ask answers a question. Pipeline failures are part of the answer text, so
// the status is 200 whenever the request itself was valid.
func (h *AskHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	question := strings.TrimSpace(req.Question)
	if userID == "" || question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and question must not be blank"})
		return
	}

	report := h.questions.Ask(ctx, userID, question)
	c.JSON(http.StatusOK, dto.ToAskResponse(report))
}

func (h *AskHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	turns, err := h.questions.History(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		slog.ErrorContext(ctx, "failed to load history", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, dto.ToHistoryResponse(userID, turns))
}
