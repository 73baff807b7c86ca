package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/orchestrator"
)

// PromptHandler answers chat prompts. Implemented by the orchestrator.
type PromptHandler interface {
	Handle(ctx context.Context, req orchestrator.Request) *domain.Outcome
}

// ChatHandler translates between the HTTP surface and the orchestrator.
type ChatHandler struct {
	prompts PromptHandler
	logger  *slog.Logger
}

// NewChatHandler creates the handler.
func NewChatHandler(prompts PromptHandler, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{prompts: prompts, logger: logger}
}

type chatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
}

// HandleChat serves POST /v1/chat.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &domain.Outcome{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	outcome := h.prompts.Handle(r.Context(), orchestrator.Request{
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		ModelKey:  req.Model,
	})

	writeJSON(w, statusFor(outcome), outcome)
}

func statusFor(outcome *domain.Outcome) int {
	if outcome.Success {
		return http.StatusOK
	}
	switch outcome.Code {
	case domain.FailValidation:
		return http.StatusBadRequest
	case domain.FailUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to write response", slog.String("error", err.Error()))
	}
}
