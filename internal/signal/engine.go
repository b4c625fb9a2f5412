package signal

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/indicator"
	"github.com/your-org/lro-swing-bot/pkg/ring"
)

const (
	// historyCap bounds the number of signals retained for inspection.
	historyCap = 100
	// defaultLookback is the divergence lookback used when the
	// configured signal period is unusable.
	defaultLookback = 10
	// divergenceCutoff is the minimum relative trend magnitude for a
	// divergence to register.
	divergenceCutoff = 0.1
	// slopeUnit is the slope magnitude treated as full trend strength
	// when scaling confidence.
	slopeUnit = 0.01

	kalmanProcessNoise     = 0.1
	kalmanMeasurementNoise = 0.3
)

// Engine turns a stream of closing prices into classified signals. It
// fits a linear regression over a sliding window, measures how far the
// latest price deviates from that trend, smooths the deviation with a
// Kalman filter and normalizes it by the window's price range. The
// resulting oscillator value is classified against adaptive
// overbought/oversold thresholds.
type Engine struct {
	mu     sync.RWMutex
	cfg    config.SignalConf
	logger *zap.Logger

	reg        *indicator.RegressionWindow
	filter     *indicator.KalmanFilter
	thresholds *indicator.AdaptiveThresholds
	x          float64
	lookback   int
	prices     *ring.Buffer[float64]
	history    *ring.Buffer[Signal]
	generated  uint64
}

// NewEngine creates a signal engine from the given configuration. The
// signal period sets the divergence lookback: how many recent readings
// are compared against price when checking for divergence.
func NewEngine(cfg config.SignalConf, logger *zap.Logger) *Engine {
	lookback := cfg.SignalPeriod
	if lookback < 2 {
		lookback = defaultLookback
	}
	priceCap := cfg.Period
	if priceCap < lookback {
		priceCap = lookback
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		reg:        indicator.NewRegressionWindow(cfg.Period),
		filter:     indicator.NewKalmanFilter(kalmanProcessNoise, kalmanMeasurementNoise, 0),
		thresholds: indicator.NewAdaptiveThresholds(cfg.Overbought, cfg.Oversold, cfg.Period),
		lookback:   lookback,
		prices:     ring.New[float64](priceCap),
		history:    ring.New[Signal](historyCap),
	}
}

// Update feeds one closing price into the engine and returns the
// evaluated signal. During warmup, before the regression window holds
// enough points for a meaningful fit, it returns a calculation error
// and no signal.
func (e *Engine) Update(ts time.Time, close float64) (*Signal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.x + 1
	if err := e.reg.Add(next, close); err != nil {
		return nil, err
	}
	e.x = next
	e.thresholds.Update(close)
	e.prices.Push(close)

	fit, err := e.reg.Calculate()
	if err != nil {
		return nil, err
	}

	deviation := close - fit.PredictAt(e.x)
	filtered := e.filter.Update(deviation)

	value := 0.0
	if priceRange := e.reg.YRange(); priceRange > 0 {
		value = filtered / priceRange
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
	}

	overbought, oversold := e.thresholds.Current()
	sigType, confidence := classify(value, fit.Slope, fit.RSquared, overbought, oversold)

	sig := Signal{
		Timestamp:     ts,
		Price:         close,
		Value:         value,
		Deviation:     deviation,
		FilteredValue: filtered,
		Type:          sigType,
		Confidence:    confidence,
		Slope:         fit.Slope,
		RSquared:      fit.RSquared,
		Overbought:    overbought,
		Oversold:      oversold,
		Divergence:    e.checkDivergence(),
	}
	e.history.Push(sig)
	e.generated++

	if sigType != Neutral {
		e.logger.Debug("signal generated",
			zap.String("type", sigType.String()),
			zap.Float64("value", value),
			zap.Float64("confidence", confidence),
			zap.Float64("price", close),
		)
	}
	return &sig, nil
}

// classify maps an oscillator value onto a signal type and scores its
// confidence from the fit quality and trend strength.
func classify(value, slope, rSquared, overbought, oversold float64) (SignalType, float64) {
	var sigType SignalType
	switch {
	case value > 1.5*overbought:
		sigType = StrongSell
	case value > overbought:
		sigType = Sell
	case value < 1.5*oversold:
		sigType = StrongBuy
	case value < oversold:
		sigType = Buy
	default:
		sigType = Neutral
	}

	confidence := rSquared * math.Min(math.Abs(slope)/slopeUnit, 1.5)
	if confidence > 1 {
		confidence = 1
	}
	if sigType == Neutral {
		confidence *= 0.5
	}
	return sigType, confidence
}

// checkDivergence compares the recent price trend against the recent
// oscillator trend. A rising price with a falling oscillator is
// bearish; a falling price with a rising oscillator is bullish.
// Callers must hold e.mu.
func (e *Engine) checkDivergence() Divergence {
	if e.prices.Len() < e.lookback || e.history.Len() < e.lookback {
		return DivergenceNone
	}
	recent := e.history.Last(e.lookback)
	values := make([]float64, len(recent))
	for i, s := range recent {
		values[i] = s.Value
	}

	priceTrend, ok := halvesTrend(e.prices.Last(e.lookback))
	if !ok {
		return DivergenceNone
	}
	oscTrend, ok := halvesTrend(values)
	if !ok {
		return DivergenceNone
	}

	switch {
	case priceTrend > divergenceCutoff && oscTrend < -divergenceCutoff:
		return DivergenceBearish
	case priceTrend < -divergenceCutoff && oscTrend > divergenceCutoff:
		return DivergenceBullish
	default:
		return DivergenceNone
	}
}

// halvesTrend returns the relative change between the mean of the
// first half of vals and the mean of the second half, normalized by
// the first-half magnitude so that a positive result always means
// rising. It reports false when the first-half mean is too close to
// zero to divide by.
func halvesTrend(vals []float64) (float64, bool) {
	half := len(vals) / 2
	if half == 0 {
		return 0, false
	}
	first := mean(vals[:half])
	second := mean(vals[half:])
	if math.Abs(first) < 1e-12 {
		return 0, false
	}
	return (second - first) / math.Abs(first), true
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// RecentSignals returns up to n of the most recent signals in
// chronological order.
func (e *Engine) RecentSignals(n int) []Signal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Last(n)
}

// Stats summarizes everything the engine has generated so far. The
// average confidence covers only the signals still held in history.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	byType := make(map[string]int)
	sum := 0.0
	resident := e.history.Values()
	for _, s := range resident {
		byType[s.Type.String()]++
		sum += s.Confidence
	}
	avg := 0.0
	if len(resident) > 0 {
		avg = sum / float64(len(resident))
	}
	return Stats{
		TotalGenerated: e.generated,
		ByType:         byType,
		AvgConfidence:  avg,
	}
}

// Reconfigure swaps in new signal parameters. The regression window,
// filter and thresholds restart from scratch; the signal history is
// preserved.
func (e *Engine) Reconfigure(cfg config.SignalConf) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lookback := cfg.SignalPeriod
	if lookback < 2 {
		lookback = defaultLookback
	}
	priceCap := cfg.Period
	if priceCap < lookback {
		priceCap = lookback
	}
	e.cfg = cfg
	e.lookback = lookback
	e.reg = indicator.NewRegressionWindow(cfg.Period)
	e.filter = indicator.NewKalmanFilter(kalmanProcessNoise, kalmanMeasurementNoise, 0)
	e.thresholds = indicator.NewAdaptiveThresholds(cfg.Overbought, cfg.Oversold, cfg.Period)
	e.prices = ring.New[float64](priceCap)
	e.x = 0
	e.logger.Info("signal engine reconfigured",
		zap.Int("period", cfg.Period),
		zap.Float64("overbought", cfg.Overbought),
		zap.Float64("oversold", cfg.Oversold),
	)
}
