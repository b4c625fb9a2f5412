// Package handler serves the bot's HTTP surface: status and audit
// reads, lifecycle controls, configuration updates and the price feed.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/errs"
)

// BotHandler handles HTTP requests against a running bot.
type BotHandler struct {
	bot     *engine.Bot
	logger  *zap.Logger
	limiter *rate.Limiter
	hub     *Hub
}

// NewBotHandler creates a new BotHandler. The feed endpoint is throttled
// by the server's rate settings; the hub may be nil when the websocket
// surface is disabled.
func NewBotHandler(bot *engine.Bot, cfg config.ServerConf, hub *Hub, logger *zap.Logger) *BotHandler {
	ratePerSec := cfg.FeedRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 100
	}
	burst := cfg.FeedBurst
	if burst <= 0 {
		burst = int(ratePerSec)
	}
	return &BotHandler{
		bot:     bot,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		hub:     hub,
	}
}

// RegisterRoutes registers all routes on the mux.
func (h *BotHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", HealthCheckHandler)
	mux.HandleFunc("GET /health/ready", h.ReadinessHandler)

	mux.HandleFunc("GET /api/status", h.GetStatus)
	mux.HandleFunc("GET /api/signals", h.GetRecentSignals)
	mux.HandleFunc("GET /api/intents", h.GetRecentIntents)
	mux.HandleFunc("GET /api/safety", h.GetSafetyStatus)
	mux.HandleFunc("GET /api/risk", h.GetRiskSnapshot)
	mux.HandleFunc("GET /api/performance", h.GetPerformance)

	mux.HandleFunc("GET /api/config", h.GetConfig)
	mux.HandleFunc("PUT /api/config", h.UpdateConfig)
	mux.HandleFunc("POST /api/balance", h.SetBalance)

	mux.HandleFunc("POST /api/control/start", h.Start)
	mux.HandleFunc("POST /api/control/stop", h.Stop)
	mux.HandleFunc("POST /api/control/pause", h.Pause)
	mux.HandleFunc("POST /api/control/resume", h.Resume)
	mux.HandleFunc("POST /api/control/emergency-stop", h.EmergencyStop)
	mux.HandleFunc("POST /api/control/reset-emergency", h.ResetEmergency)
	mux.HandleFunc("POST /api/control/reset-daily-loss", h.ResetDailyLoss)

	mux.HandleFunc("POST /api/feed", h.IngestTick)

	if h.hub != nil {
		mux.HandleFunc("GET /ws", h.ServeWS)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response to JSON", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindStateConflict:
		return http.StatusConflict
	case errs.KindBusy:
		return http.StatusTooManyRequests
	case errs.KindRiskLimit:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
