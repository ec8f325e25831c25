package handler

import (
	"errors"
	"net/http"

	"github.com/evyataryagoni/timebot/internal/clock"
	"github.com/evyataryagoni/timebot/internal/geoip"
)

// TimeHandler exposes the time tools directly over HTTP, without the LLM in
// between. Useful for the course exercises and for probing the tool chain.
type TimeHandler struct {
	clock *clock.Service
}

// NewTimeHandler creates a time handler with the given clock service.
func NewTimeHandler(clock *clock.Service) *TimeHandler {
	return &TimeHandler{clock: clock}
}

// LocalTime handles GET /v1/local-time?timezone=<tz>
// @Summary      Current time in a timezone
// @Description  Formats the current wall-clock time for an IANA timezone identifier
// @Tags         Time
// @Produce      json
// @Param        timezone  query     string  true  "IANA timezone identifier, or 'local'"  example(America/New_York)
// @Success      200       {object}  models.TimeResponse
// @Failure      400       {object}  models.ErrorResponse  "Missing or invalid timezone"
// @Failure      502       {object}  models.ErrorResponse  "Upstream lookup failure (only for 'local')"
// @Router       /v1/local-time [get]
func (h *TimeHandler) LocalTime(w http.ResponseWriter, r *http.Request) {
	timezone := r.URL.Query().Get("timezone")
	if timezone == "" {
		respondError(w, http.StatusBadRequest, "Missing 'timezone' query parameter")
		return
	}

	resp, err := h.clock.LocalTime(r.Context(), timezone)
	if err != nil {
		h.respondTimeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// WhoAmI handles GET /v1/whoami
// @Summary      Caller's local time via IP geolocation
// @Description  Resolves the server's public IP, geolocates it, and returns the local time there
// @Tags         Time
// @Produce      json
// @Success      200  {object}  models.TimeResponse
// @Failure      502  {object}  models.ErrorResponse  "IP or geolocation lookup failure"
// @Router       /v1/whoami [get]
func (h *TimeHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	resp, err := h.clock.LocalTimeFromIP(r.Context())
	if err != nil {
		h.respondTimeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondTimeError maps the typed clock/geoip errors onto status codes.
func (h *TimeHandler) respondTimeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clock.ErrInvalidTimezone):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, geoip.ErrNetwork), errors.Is(err, geoip.ErrResolution):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
