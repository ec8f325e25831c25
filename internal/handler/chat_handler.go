package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/evyataryagoni/timebot/internal/assistant"
	"github.com/evyataryagoni/timebot/internal/models"
)

// chatUserID identifies web-UI conversations in the session backend.
// The demo UI is anonymous; sessions are distinguished by session ID only.
const chatUserID = "web"

// Asker is the slice of the assistant the chat handler needs.
// An interface so tests can swap in a fake without a model endpoint.
type Asker interface {
	Ask(ctx context.Context, userID, sessionID, text string) (*assistant.Reply, error)
}

// ChatHandler handles HTTP requests for the chat UI.
// It deals with HTTP concerns only; the agent loop lives behind Asker.
type ChatHandler struct {
	assistant Asker
}

// NewChatHandler creates a chat handler backed by the given assistant.
func NewChatHandler(assistant Asker) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// Chat handles POST /v1/chat
// @Summary      Send a chat message to the agent
// @Description  Forwards a user text query to the agent's run loop and returns the final answer
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      models.ChatRequest  true  "User message and optional session ID"
// @Success      200      {object}  models.ChatResponse
// @Failure      400      {object}  models.ErrorResponse  "Empty or malformed message"
// @Failure      429      {object}  models.ErrorResponse  "Rate limit exceeded"
// @Failure      502      {object}  models.ErrorResponse  "Agent or model endpoint failure"
// @Router       /v1/chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	// Step 1: Parse the request body
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "Missing 'message' field")
		return
	}

	// Step 2: Resolve the conversation. A fresh session ID starts a new
	// thread; the client keeps it to continue the conversation.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Step 3: Run one agent turn. Everything past this point - planning,
	// tool calls, step limits - happens inside the agent framework.
	reply, err := h.assistant.Ask(r.Context(), chatUserID, sessionID, req.Message)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Agent failed to answer: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.ChatResponse{
		Reply:     reply.Content,
		SessionID: sessionID,
		ToolCalls: reply.ToolCalls,
	})
}
