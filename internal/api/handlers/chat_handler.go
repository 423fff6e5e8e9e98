package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sooahkim/childcenter-chat/internal/application/services"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

const sessionHeader = "X-Session-ID"

// ChatHandler handles conversational requests
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatResponseBody struct {
	SessionID string                  `json:"session_id"`
	Text      string                  `json:"text"`
	Centers   []entities.ScoredCenter `json:"centers"`
}

// HandleChat handles POST /api/chat. The session ID comes from the
// X-Session-ID header; a missing header starts a fresh session and the
// generated ID is echoed back for the client to reuse.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req entities.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := h.chatService.Handle(r.Context(), sessionID, req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	w.Header().Set(sessionHeader, sessionID)
	respondWithJSON(w, http.StatusOK, chatResponseBody{
		SessionID: sessionID,
		Text:      resp.Text,
		Centers:   resp.Centers,
	})
}
