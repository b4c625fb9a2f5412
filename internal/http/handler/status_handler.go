package handler

import (
	"net/http"
	"strconv"
)

// defaultRecentLimit is applied when a list endpoint is called without
// an explicit limit.
const defaultRecentLimit = 50

// GetStatus returns the bot's lifecycle, position and signal state.
func (h *BotHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bot.Status())
}

// GetRecentSignals returns the most recent evaluated signals, oldest
// first. The limit query parameter caps the count.
func (h *BotHandler) GetRecentSignals(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.bot.RecentSignals(limit))
}

// GetRecentIntents returns the most recent trade intents, oldest first.
func (h *BotHandler) GetRecentIntents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.bot.RecentIntents(limit))
}

// GetSafetyStatus returns the supervisor state together with recent
// halts and suppressions.
func (h *BotHandler) GetSafetyStatus(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"safety": h.bot.SafetyStatus(),
		"events": h.bot.RecentSafetyEvents(limit),
	})
}

// GetRiskSnapshot returns the risk manager's sizing state.
func (h *BotHandler) GetRiskSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bot.RiskSnapshot())
}

// GetPerformance returns the paper account results marked at the last
// seen price.
func (h *BotHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bot.Performance())
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultRecentLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
