package sim

import "math"

// carryEpsilon absorbs float drift when fractional rates add up to a whole call.
const carryEpsilon = 1e-9

// ConstantStrategy launches a fixed number of calls per interval. Fractional
// rates are carried across intervals so they average out exactly.
type ConstantStrategy struct {
	rate     float64
	interval int64
	carry    float64
}

// NewConstantStrategy creates a constant-rate dialer. Negative rates clamp to
// zero. An interval shorter than, or not a multiple of, the epoch is coerced
// to the epoch.
func NewConstantStrategy(rate float64, interval, epoch int64) *ConstantStrategy {
	if interval < epoch || interval%epoch != 0 {
		interval = epoch
	}
	s := &ConstantStrategy{interval: interval}
	s.SetRate(rate)
	return s
}

func (s *ConstantStrategy) Name() string { return "constant" }

// Rate returns the current dial level, in calls per interval.
func (s *ConstantStrategy) Rate() float64 { return s.rate }

// Interval returns the launch interval in milliseconds.
func (s *ConstantStrategy) Interval() int64 { return s.interval }

// SetRate changes the dial level. The fractional carry is kept.
func (s *ConstantStrategy) SetRate(rate float64) {
	s.rate = max(rate, 0)
}

// CallsToLaunch emits floor(rate + carry) calls on interval boundaries.
func (s *ConstantStrategy) CallsToLaunch(v EngineView) (int, error) {
	if v.Now()%s.interval != 0 {
		return 0, nil
	}
	return s.emit(), nil
}

func (s *ConstantStrategy) emit() int {
	total := s.rate + s.carry
	n := math.Floor(total + carryEpsilon)
	s.carry = max(total-n, 0)
	return int(n)
}
