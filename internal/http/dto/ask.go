package dto

import (
	"time"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/model"
)

type AskRequest struct {
	UserID   string `json:"user_id" binding:"required,max=255"`
	Question string `json:"question" binding:"required,max=4000"`
}

type AskResponse struct {
	RequestID   string                `json:"request_id"`
	Answer      string                `json:"answer"`
	Model       string                `json:"model"`
	Keywords    []string              `json:"keywords"`
	WindowCount int                   `json:"window_count"`
	Documents   []model.DocumentUsage `json:"documents"`
	Failed      bool                  `json:"failed"`
	DurationMs  int64                 `json:"duration_ms"`
}

func ToAskResponse(r brain.Report) AskResponse {
	kws := r.Keywords
	if kws == nil {
		kws = []string{}
	}
	docs := r.Documents
	if docs == nil {
		docs = []model.DocumentUsage{}
	}
	return AskResponse{
		RequestID:   r.RequestID,
		Answer:      r.Answer,
		Model:       r.Model,
		Keywords:    kws,
		WindowCount: r.WindowCount,
		Documents:   docs,
		Failed:      r.Failed,
		DurationMs:  r.Duration.Milliseconds(),
	}
}

type TurnResponse struct {
	ID        int64      `json:"id,string,omitempty"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Model     string     `json:"model,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type HistoryResponse struct {
	UserID string         `json:"user_id"`
	Turns  []TurnResponse `json:"turns"`
}

func ToHistoryResponse(userID string, turns []model.Turn) HistoryResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnResponse{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.Content,
			Model:     t.Model,
			CreatedAt: t.CreatedAt,
		})
	}
	return HistoryResponse{UserID: userID, Turns: out}
}
