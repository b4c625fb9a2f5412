package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/metrics"
)

var apiBase = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

// entrySeries drives the oscillator into oversold on its final bar
// under the shortened test periods.
var entrySeries = []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 104}

func testAPIConfig() *config.Config {
	cfg := config.Default()
	cfg.Signal.Period = 5
	cfg.Signal.SignalPeriod = 3
	cfg.Signal.Overbought = 0.15
	cfg.Signal.Oversold = -0.15
	cfg.Signal.MinConfidence = 0
	return cfg
}

func newTestMux(t *testing.T, cfg *config.Config, hub *Hub) (*http.ServeMux, *engine.Bot) {
	t.Helper()
	bot, err := engine.NewBot(cfg, nil, nil, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	require.NoError(t, err)

	h := NewBotHandler(bot, cfg.Server, hub, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, bot
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// waitForClients blocks until the hub has registered n connections.
// The dial handshake completes before the server side registers, so a
// bare count check races.
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, n, hub.ClientCount())
}

func tickAt(i int, close float64) engine.PricePoint {
	open := close
	if i > 0 {
		open = entrySeries[i-1]
	}
	return engine.PricePoint{
		Timestamp: apiBase.Add(time.Duration(i) * time.Minute),
		Open:      open,
		High:      close + 0.5,
		Low:       close - 0.5,
		Close:     close,
		Volume:    1,
	}
}

func TestHealthEndpoints(t *testing.T) {
	mux, bot := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	// The heartbeat is fresh after construction, so the bot is ready.
	rr = doRequest(t, mux, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// An emergency stop takes it out of rotation.
	bot.TriggerEmergencyStop()
	rr = doRequest(t, mux, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	require.NoError(t, bot.ResetEmergencyStop())
	rr = doRequest(t, mux, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetStatus(t *testing.T) {
	mux, _ := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var status engine.BotStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "Stopped", status.State)
	assert.Equal(t, "BTC/USD", status.Pair)
}

func TestFeedRequiresRunning(t *testing.T) {
	mux, _ := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodPost, "/api/feed", tickAt(0, 100))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestFeedRejectsMalformedBody(t *testing.T) {
	mux, bot := newTestMux(t, testAPIConfig(), nil)
	require.NoError(t, bot.Start())

	req := httptest.NewRequest(http.MethodPost, "/api/feed", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFeedEmitsEntryIntent(t *testing.T) {
	mux, bot := newTestMux(t, testAPIConfig(), nil)
	require.NoError(t, bot.Start())

	var intent *engine.TradeIntent
	for i, close := range entrySeries {
		rr := doRequest(t, mux, http.MethodPost, "/api/feed", tickAt(i, close))
		require.Equal(t, http.StatusOK, rr.Code, "tick %d", i)

		var resp feedResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Accepted)
		if resp.Intent != nil {
			intent = resp.Intent
		}
	}
	require.NotNil(t, intent, "expected an entry intent from the oversold series")
	assert.Equal(t, engine.SideBuy, intent.Side)

	rr := doRequest(t, mux, http.MethodGet, "/api/intents", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var intents []engine.TradeIntent
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &intents))
	require.Len(t, intents, 1)

	rr = doRequest(t, mux, http.MethodGet, "/api/status", nil)
	var status engine.BotStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Greater(t, status.Position.Size, 0.0)
}

func TestFeedRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Server.FeedRatePerSec = 1
	cfg.Server.FeedBurst = 1
	mux, bot := newTestMux(t, cfg, nil)
	require.NoError(t, bot.Start())

	rr := doRequest(t, mux, http.MethodPost, "/api/feed", tickAt(0, 100))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, mux, http.MethodPost, "/api/feed", tickAt(1, 101))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRecentSignalsLimitValidation(t *testing.T) {
	mux, _ := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodGet, "/api/signals?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, mux, http.MethodGet, "/api/signals?limit=-5", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, mux, http.MethodGet, "/api/signals", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestControlEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodPost, "/api/control/start", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Running")

	rr = doRequest(t, mux, http.MethodPost, "/api/control/start", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, mux, http.MethodPost, "/api/control/pause", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Paused")

	rr = doRequest(t, mux, http.MethodPost, "/api/control/resume", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, mux, http.MethodPost, "/api/control/emergency-stop", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Emergency Stopped")

	rr = doRequest(t, mux, http.MethodPost, "/api/control/reset-emergency", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var state map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, "Stopped", state["state"])

	rr = doRequest(t, mux, http.MethodPost, "/api/control/reset-daily-loss", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestConfigEndpoints(t *testing.T) {
	mux, _ := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = doRequest(t, mux, http.MethodPut, "/api/config",
		map[string]any{"risk": map[string]any{"take_profit_percent": 6.0}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, mux, http.MethodGet, "/api/config", nil)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, 6.0, cfg.Risk.TakeProfitPercent)
	// Untouched fields keep their values.
	assert.Equal(t, 2.0, cfg.Risk.StopLossPercent)

	rr = doRequest(t, mux, http.MethodPut, "/api/config",
		map[string]any{"risk": map[string]any{"stop_loss_percent": 0.0}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, mux, http.MethodPut, "/api/config",
		map[string]any{"pair": "ETH/USD"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSetBalanceEndpoint(t *testing.T) {
	mux, bot := newTestMux(t, testAPIConfig(), nil)

	rr := doRequest(t, mux, http.MethodPost, "/api/balance", map[string]float64{"balance": 20000})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 20000.0, bot.Performance().Balance)

	rr = doRequest(t, mux, http.MethodPost, "/api/balance", map[string]float64{"balance": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebsocketReceivesTickUpdates(t *testing.T) {
	cfg := testAPIConfig()
	hub := NewHub(zap.NewNop())
	mux, bot := newTestMux(t, cfg, hub)
	require.NoError(t, bot.Start())

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	body, err := json.Marshal(tickAt(0, 100))
	require.NoError(t, err)
	httpResp, err := http.Post(srv.URL+"/api/feed", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update TickUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "tick", update.Type)
	assert.Equal(t, 100.0, update.Tick.Close)
	assert.Equal(t, "Running", update.Status.State)

	hub.Close()
}

func TestHubDropsDeadClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	mux, bot := newTestMux(t, testAPIConfig(), hub)
	require.NoError(t, bot.Start())

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, conn.Close())

	// The server notices the closed connection on its next write at
	// the latest.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		hub.Broadcast(TickUpdate{Type: "tick"})
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestFeedBroadcastsHaltError(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Safety.FlashMovePercent = 5
	cfg.Safety.BreakerTripLimit = 1
	hub := NewHub(zap.NewNop())
	mux, bot := newTestMux(t, cfg, hub)
	require.NoError(t, bot.Start())

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	post := func(i int, close float64) int {
		t.Helper()
		payload, err := json.Marshal(engine.PricePoint{
			Timestamp: apiBase.Add(time.Duration(i) * time.Minute),
			Open:      close, High: close + 0.5, Low: close - 0.5, Close: close, Volume: 1,
		})
		require.NoError(t, err)
		httpResp, err := http.Post(srv.URL+"/api/feed", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		defer httpResp.Body.Close()
		return httpResp.StatusCode
	}

	require.Equal(t, http.StatusOK, post(0, 100))
	// A 20% jump trips the breaker and, with a limit of one trip,
	// escalates straight to emergency stop.
	require.Equal(t, http.StatusConflict, post(1, 120))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var sawError bool
	for i := 0; i < 2; i++ {
		var update TickUpdate
		require.NoError(t, conn.ReadJSON(&update))
		if update.Error != "" {
			sawError = true
			assert.Equal(t, "Emergency Stopped", update.Status.State)
		}
	}
	assert.True(t, sawError, "expected the halt tick to carry an error")
}
