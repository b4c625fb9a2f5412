package handler

import (
	"encoding/json"
	"net/http"

	"github.com/your-org/lro-swing-bot/internal/engine"
)

// feedResponse is returned for each accepted tick.
type feedResponse struct {
	Accepted bool                `json:"accepted"`
	Intent   *engine.TradeIntent `json:"intent,omitempty"`
}

// IngestTick feeds one price point through the decision pipeline.
// Beyond the configured rate, ticks are shed with 429 before touching
// the pipeline.
func (h *BotHandler) IngestTick(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "feed rate limit exceeded")
		return
	}

	var tick engine.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&tick); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tick payload: "+err.Error())
		return
	}

	intent, err := h.bot.HandleTick(r.Context(), tick)
	if err != nil {
		h.broadcastTick(tick, nil, err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	h.broadcastTick(tick, intent, nil)
	writeJSON(w, http.StatusOK, feedResponse{Accepted: true, Intent: intent})
}

func (h *BotHandler) broadcastTick(tick engine.PricePoint, intent *engine.TradeIntent, tickErr error) {
	if h.hub == nil {
		return
	}
	update := TickUpdate{
		Type:   "tick",
		Tick:   tick,
		Intent: intent,
		Status: h.bot.Status(),
	}
	if tickErr != nil {
		update.Error = tickErr.Error()
	}
	h.hub.Broadcast(update)
}
