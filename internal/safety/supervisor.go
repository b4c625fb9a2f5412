package safety

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/alert"
	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/indicator"
)

// EmergencySource reports the process-wide emergency stop flag. The
// lifecycle controller implements it.
type EmergencySource interface {
	EmergencyStopped() bool
}

// Supervisor evaluates every tick against the safety limits. All methods
// are safe for concurrent use.
//
// The breaker trips on a single-tick flash move or on excessive price
// dispersion, then blocks entries for the configured cooldown. Trips do
// not re-fire during a cooldown, so the trip count measures separate
// episodes; it never decays until ResetBreaker.
type Supervisor struct {
	mu        sync.Mutex
	cfg       config.SafetyConf
	logger    *zap.Logger
	emergency EmergencySource
	notifier  alert.Notifier

	vol       *indicator.NormalizedVolatility
	lastPrice float64
	hasLast   bool
	lastTick  time.Time

	trips    int
	lastTrip time.Time

	dailyLoss float64
	lossDay   time.Time
}

// NewSupervisor creates a Supervisor with the given limits and
// collaborators.
func NewSupervisor(cfg config.SafetyConf, emergency EmergencySource, notifier alert.Notifier, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		logger:    logger,
		emergency: emergency,
		notifier:  notifier,
		vol:       indicator.NewNormalizedVolatility(cfg.VolatilityWindow),
	}
}

// Evaluate runs a tick through every guard and returns the first verdict
// that is not Continue. now is the tick timestamp; price must already be
// validated by the caller; balance scales the daily loss limit.
func (s *Supervisor) Evaluate(now time.Time, price, balance float64) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emergency.EmergencyStopped() {
		return Verdict{Action: Halt, Reason: "emergency stop active"}
	}

	s.rollDay(now)

	flash := 0.0
	if s.hasLast && s.lastPrice > 0 {
		flash = math.Abs(price-s.lastPrice) / s.lastPrice * 100
	}
	s.vol.Update(price)
	s.lastPrice = price
	s.hasLast = true
	s.lastTick = now

	if cooling, remaining := s.coolingDown(now); cooling {
		return Verdict{
			Action: Block,
			Reason: fmt.Sprintf("circuit breaker cooling down, %s remaining", remaining.Round(time.Second)),
		}
	}

	if flash > s.cfg.FlashMovePercent {
		return s.trip(now, fmt.Sprintf("flash move of %.1f%% exceeds %.1f%%", flash, s.cfg.FlashMovePercent))
	}
	if score := s.vol.Value(); score > s.cfg.VolatilityLimit {
		return s.trip(now, fmt.Sprintf("volatility %.2f exceeds limit %.2f", score, s.cfg.VolatilityLimit))
	}

	if limit := balance * s.cfg.MaxDailyLossPercent / 100; balance > 0 && s.dailyLoss >= limit {
		return Verdict{
			Action: Block,
			Reason: fmt.Sprintf("daily loss %.2f reached limit %.2f", s.dailyLoss, limit),
		}
	}

	return Verdict{Action: Continue}
}

// trip records a breaker trip, notifies, and escalates to Halt once the
// trip limit is reached.
func (s *Supervisor) trip(now time.Time, reason string) Verdict {
	s.trips++
	s.lastTrip = now
	s.logger.Warn("circuit breaker tripped",
		zap.String("reason", reason),
		zap.Int("trips", s.trips),
	)
	if err := s.notifier.Send("circuit breaker tripped: " + reason); err != nil {
		s.logger.Error("failed to send breaker alert", zap.Error(err))
	}

	if s.trips >= s.cfg.BreakerTripLimit {
		s.logger.Error("breaker trip limit reached, escalating to emergency stop",
			zap.Int("trips", s.trips),
			zap.Int("limit", s.cfg.BreakerTripLimit),
		)
		if err := s.notifier.Send(fmt.Sprintf("emergency stop: circuit breaker tripped %d times", s.trips)); err != nil {
			s.logger.Error("failed to send escalation alert", zap.Error(err))
		}
		return Verdict{Action: Halt, Reason: fmt.Sprintf("circuit breaker tripped %d times: %s", s.trips, reason)}
	}
	return Verdict{Action: Block, Reason: "circuit breaker tripped: " + reason}
}

func (s *Supervisor) coolingDown(now time.Time) (bool, time.Duration) {
	if s.lastTrip.IsZero() {
		return false, 0
	}
	cooldown := time.Duration(s.cfg.BreakerCooldownMins) * time.Minute
	elapsed := now.Sub(s.lastTrip)
	if elapsed < cooldown {
		return true, cooldown - elapsed
	}
	return false, 0
}

// rollDay clears the daily loss when the UTC date changes.
func (s *Supervisor) rollDay(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(s.lossDay) {
		if s.dailyLoss != 0 {
			s.logger.Info("daily loss reset on day rollover", zap.Float64("previous", s.dailyLoss))
		}
		s.dailyLoss = 0
		s.lossDay = day
	}
}

// RecordLoss adds a realized loss, given as a positive amount, to the
// daily total. Wins do not offset it. Non-positive or non-finite values
// are ignored.
func (s *Supervisor) RecordLoss(now time.Time, loss float64) {
	if loss <= 0 || math.IsNaN(loss) || math.IsInf(loss, 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDay(now)
	s.dailyLoss += loss
}

// ResetDailyLoss clears the daily loss total immediately.
func (s *Supervisor) ResetDailyLoss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyLoss = 0
	s.logger.Info("daily loss reset")
}

// Sweep is the periodic check for conditions that develop without ticks.
// A feed that has gone quiet past the stale limit returns Pause. Before
// the first tick there is nothing to supervise and Sweep continues.
func (s *Supervisor) Sweep(now time.Time) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTick.IsZero() {
		return Verdict{Action: Continue}
	}
	stale := time.Duration(s.cfg.StaleTickSeconds) * time.Second
	if age := now.Sub(s.lastTick); age > stale {
		return Verdict{
			Action: Pause,
			Reason: fmt.Sprintf("market data stale for %s", age.Round(time.Second)),
		}
	}
	return Verdict{Action: Continue}
}

// CheckHold reports whether a position opened at openedAt has exceeded
// the hold-time cap. The verdict is advisory; the orchestrator decides
// whether to force an exit.
func (s *Supervisor) CheckHold(openedAt, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if openedAt.IsZero() {
		return false
	}
	return now.Sub(openedAt) > time.Duration(s.cfg.MaxHoldHours*float64(time.Hour))
}

// ResetBreaker clears the trip count and cooldown. The orchestrator
// calls it when the emergency stop is reset.
func (s *Supervisor) ResetBreaker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = 0
	s.lastTrip = time.Time{}
	s.logger.Info("circuit breaker reset")
}

// Status returns a point-in-time snapshot of the supervisor state.
func (s *Supervisor) Status(now time.Time) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	cooling, remaining := s.coolingDown(now)
	return Status{
		EmergencyStopped: s.emergency.EmergencyStopped(),
		BreakerActive:    cooling,
		BreakerTrips:     s.trips,
		LastTrip:         s.lastTrip,
		CooldownSeconds:  remaining.Seconds(),
		DailyLoss:        s.dailyLoss,
		Volatility:       s.vol.Value(),
		LastTick:         s.lastTick,
	}
}

// Reconfigure applies new limits. The volatility window restarts; the
// daily loss, trip count and cooldown carry over.
func (s *Supervisor) Reconfigure(cfg config.SafetyConf) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.vol = indicator.NewNormalizedVolatility(cfg.VolatilityWindow)
	s.logger.Info("safety supervisor reconfigured",
		zap.Float64("max_daily_loss_percent", cfg.MaxDailyLossPercent),
		zap.Float64("volatility_limit", cfg.VolatilityLimit),
		zap.Float64("flash_move_percent", cfg.FlashMovePercent),
	)
}
