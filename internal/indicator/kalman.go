package indicator

// KalmanFilter is a scalar Kalman filter used to smooth the raw regression
// deviation. State persists across updates, so consecutive signals see a
// continuous filtered series rather than independent estimates.
type KalmanFilter struct {
	q float64 // process noise
	r float64 // measurement noise
	x float64 // estimate
	p float64 // estimate covariance
}

// NewKalmanFilter creates a filter with the given noise parameters and
// initial estimate. The initial covariance is 1, so early measurements
// move the estimate quickly.
func NewKalmanFilter(processNoise, measurementNoise, initial float64) *KalmanFilter {
	return &KalmanFilter{
		q: processNoise,
		r: measurementNoise,
		x: initial,
		p: 1.0,
	}
}

// Update feeds one measurement through the filter and returns the new
// estimate.
func (k *KalmanFilter) Update(measurement float64) float64 {
	k.p += k.q
	gain := k.p / (k.p + k.r)
	k.x += gain * (measurement - k.x)
	k.p = (1 - gain) * k.p
	return k.x
}

// Value returns the current estimate without feeding a measurement.
func (k *KalmanFilter) Value() float64 {
	return k.x
}
