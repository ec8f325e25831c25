package v1

import (
	"github.com/go-chi/chi/v5"

	"github.com/evyataryagoni/timebot/internal/handler"
)

// SetupRoutes configures all v1 API routes.
func SetupRoutes(chatHandler *handler.ChatHandler, timeHandler *handler.TimeHandler) chi.Router {
	r := chi.NewRouter()

	// Agent chat endpoint
	// POST /v1/chat  {"message": "...", "session_id": "..."}
	r.Post("/chat", chatHandler.Chat)

	// Direct tool endpoints (no LLM involved)
	// GET /v1/local-time?timezone=<tz>
	r.Get("/local-time", timeHandler.LocalTime)
	// GET /v1/whoami
	r.Get("/whoami", timeHandler.WhoAmI)

	return r
}
