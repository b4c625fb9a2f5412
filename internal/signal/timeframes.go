package signal

import (
	"sort"
	"sync"

	"github.com/your-org/lro-swing-bot/internal/indicator"
)

// TimeframeSet maintains one regression window per configured
// timeframe so a primary signal can be checked against the trend on
// slower views of the same price stream.
type TimeframeSet struct {
	mu     sync.Mutex
	frames map[string]*timeframe
}

type timeframe struct {
	reg *indicator.RegressionWindow
	x   float64
}

// NewTimeframeSet builds windows for the given name -> period map.
// A nil or empty map yields a set whose Confluence is always 1.
func NewTimeframeSet(periods map[string]int) *TimeframeSet {
	frames := make(map[string]*timeframe, len(periods))
	for name, period := range periods {
		frames[name] = &timeframe{reg: indicator.NewRegressionWindow(period)}
	}
	return &TimeframeSet{frames: frames}
}

// Update feeds one closing price into every timeframe window.
func (t *TimeframeSet) Update(close float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.frames {
		if err := f.reg.Add(f.x+1, close); err != nil {
			return err
		}
		f.x++
	}
	return nil
}

// Confluence scores how strongly the timeframe trends agree with the
// direction of the primary signal. Each frame votes with its trend
// direction, weighted by its fit quality; the score is the weighted
// fraction of agreeing frames in [0, 1]. A frame votes only once its
// window is full. When no frame can vote, or the primary signal is
// neutral, the score is 1 so that confluence never blocks on missing
// evidence.
func (t *TimeframeSet) Confluence(primary SignalType) (score float64, frames int) {
	dir := primary.Direction()
	if dir == 0 {
		return 1, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var agree, total float64
	for _, f := range t.frames {
		if f.reg.Len() < f.reg.Cap() {
			continue
		}
		fit, err := f.reg.Calculate()
		if err != nil {
			continue
		}
		weight := fit.RSquared
		if weight <= 0 {
			continue
		}
		frames++
		total += weight
		if (dir > 0 && fit.Slope > 0) || (dir < 0 && fit.Slope < 0) {
			agree += weight
		}
	}
	if total == 0 {
		return 1, 0
	}
	return agree / total, frames
}

// TimeframeView is the current fit of one frame.
type TimeframeView struct {
	Name     string  `json:"name"`
	Period   int     `json:"period"`
	Slope    float64 `json:"slope"`
	RSquared float64 `json:"r_squared"`
}

// Snapshot returns the current per-frame fits sorted by frame name.
// Frames whose window is not yet full are omitted.
func (t *TimeframeSet) Snapshot() []TimeframeView {
	t.mu.Lock()
	defer t.mu.Unlock()

	views := make([]TimeframeView, 0, len(t.frames))
	for name, f := range t.frames {
		if f.reg.Len() < f.reg.Cap() {
			continue
		}
		fit, err := f.reg.Calculate()
		if err != nil {
			continue
		}
		views = append(views, TimeframeView{
			Name:     name,
			Period:   f.reg.Cap(),
			Slope:    fit.Slope,
			RSquared: fit.RSquared,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}
