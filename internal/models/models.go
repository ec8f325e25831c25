package models

// GeoLocation represents geographic information resolved for an IP address.
// It is built per lookup from the geolocation provider's JSON response and
// discarded once the formatted time string is produced - nothing is persisted.
type GeoLocation struct {
	IP       string  `json:"ip"`       // The IP address that was resolved
	Country  string  `json:"country"`  // Country name
	Region   string  `json:"region"`   // Region / state name
	City     string  `json:"city"`     // City name
	Timezone string  `json:"timezone"` // IANA timezone identifier (e.g. "Australia/Sydney")
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
}

// ChatRequest is the body accepted by POST /v1/chat.
// SessionID is optional - when empty the server starts a new conversation
// and returns the generated ID so the client can keep the thread going.
type ChatRequest struct {
	Message   string `json:"message"`              // User text query
	SessionID string `json:"session_id,omitempty"` // Conversation to continue
}

// ChatResponse is the reply for POST /v1/chat.
type ChatResponse struct {
	Reply     string   `json:"reply"`                // Final assistant answer
	SessionID string   `json:"session_id"`           // Conversation identifier
	ToolCalls []string `json:"tool_calls,omitempty"` // Tools the agent invoked this turn
}

// TimeResponse is the reply for the direct (non-LLM) time endpoints.
type TimeResponse struct {
	Timezone  string `json:"timezone"`       // Resolved IANA timezone identifier
	LocalTime string `json:"local_time"`     // Formatted wall-clock time
	City      string `json:"city,omitempty"` // Present when resolved via IP
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"` // Error message
}
