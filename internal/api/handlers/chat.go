package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caldermed/triage/internal/api"
	"github.com/caldermed/triage/internal/domain"
)

type ChatService interface {
	Handle(ctx context.Context, sessionID, message string, topK int) (*domain.ChatResult, error)
}

type SessionService interface {
	History(sessionID string) []domain.ChatTurn
	Clear(sessionID string)
}

type ChatHandler struct {
	svc      ChatService
	sessions SessionService
}

func NewChatHandler(svc ChatService, sessions SessionService) *ChatHandler {
	return &ChatHandler{svc: svc, sessions: sessions}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	TopK      int    `json:"top_k"`
}

type ChatResponse struct {
	SessionID string                `json:"session_id"`
	Answer    string                `json:"answer"`
	Citations []domain.ChatCitation `json:"citations"`
}

type ChatTurnResponse struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type HistoryResponse struct {
	SessionID string             `json:"session_id"`
	Turns     []ChatTurnResponse `json:"turns"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.TopK < 0 {
		api.Error(w, http.StatusBadRequest, "top_k must be non-negative")
		return
	}

	result, err := h.svc.Handle(r.Context(), req.SessionID, req.Message, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		SessionID: req.SessionID,
		Answer:    result.Answer,
		Citations: result.Citations,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	turns := h.sessions.History(sessionID)
	resp := HistoryResponse{
		SessionID: sessionID,
		Turns:     make([]ChatTurnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, ChatTurnResponse{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	h.sessions.Clear(sessionID)
	api.Success(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "cleared"})
}
