package handler

import (
	"net/http"
)

// HealthCheckHandler is a simple handler that returns HTTP 200 OK.
// It can be used for health checks by Docker or other services.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ReadinessHandler reports whether the bot is running and its feed is
// fresh. Orchestrators can use it to gate traffic.
func (h *BotHandler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	status := h.bot.Status()
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready": false,
			"state": status.State,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ready": true,
		"state": status.State,
	})
}
