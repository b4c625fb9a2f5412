package handler

import (
	"net/http"
)

// Start transitions the bot into the running state.
func (h *BotHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.control(w, h.bot.Start())
}

// Stop halts tick processing.
func (h *BotHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.control(w, h.bot.Stop())
}

// Pause suspends tick processing without losing state.
func (h *BotHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, h.bot.Pause())
}

// Resume lifts a pause.
func (h *BotHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, h.bot.Resume())
}

// EmergencyStop forces the kill switch. It never fails.
func (h *BotHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	h.bot.TriggerEmergencyStop()
	h.control(w, nil)
}

// ResetEmergency clears the kill switch and the circuit breaker.
func (h *BotHandler) ResetEmergency(w http.ResponseWriter, r *http.Request) {
	h.control(w, h.bot.ResetEmergencyStop())
}

// ResetDailyLoss clears the accumulated daily loss.
func (h *BotHandler) ResetDailyLoss(w http.ResponseWriter, r *http.Request) {
	h.bot.ResetDailyLoss()
	h.control(w, nil)
}

// control writes the outcome of a lifecycle transition together with
// the resulting state.
func (h *BotHandler) control(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": h.bot.Status().State})
}
