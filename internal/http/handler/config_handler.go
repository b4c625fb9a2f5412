package handler

import (
	"encoding/json"
	"net/http"
)

// GetConfig returns the active configuration. Database credentials are
// never included.
func (h *BotHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bot.Config())
}

// UpdateConfig merges the request body over the active configuration,
// validates the result and applies it. Omitted fields keep their
// current values.
func (h *BotHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	next := h.bot.Config().Clone()
	if err := json.NewDecoder(r.Body).Decode(next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config payload: "+err.Error())
		return
	}
	if err := h.bot.UpdateConfig(next); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	h.logger.Info("configuration updated over HTTP")
	writeJSON(w, http.StatusOK, next)
}

// SetBalance replaces the simulated account balance.
func (h *BotHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid balance payload: "+err.Error())
		return
	}
	if err := h.bot.SetBalance(req.Balance); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"balance": req.Balance})
}
