package sim

import "math"

// AnalyticStrategy sizes each launch from a queueing estimate: the traffic the
// free agents can absorb, divided by the expected agent time one dialed call
// produces.
type AnalyticStrategy struct {
	cfg        AnalyticConfig
	interval   int64
	maxAbandon float64
}

// NewAnalyticStrategy creates the analytic dialer. The interval is coerced to
// the epoch the same way as for ConstantStrategy.
func NewAnalyticStrategy(cfg AnalyticConfig, interval, epoch int64, maxAbandon float64) *AnalyticStrategy {
	if interval < epoch || interval%epoch != 0 {
		interval = epoch
	}
	return &AnalyticStrategy{cfg: cfg, interval: interval, maxAbandon: maxAbandon}
}

func (s *AnalyticStrategy) Name() string { return "analytic" }

// CallsToLaunch dials 1 call per second during warm-up, nothing while the
// abandonment rate is above the legal maximum, and the estimated rate
// otherwise.
func (s *AnalyticStrategy) CallsToLaunch(v EngineView) (int, error) {
	now := v.Now()
	if now < s.cfg.WarmUpMs {
		if now%OneSecond == 0 {
			return 1, nil
		}
		return 0, nil
	}
	if now%s.interval != 0 {
		return 0, nil
	}
	if v.AbandonmentRate() > s.maxAbandon {
		return 0, nil
	}

	totals := v.Totals()
	if totals.Calls == 0 || totals.Answered == 0 || totals.Talked == 0 {
		// nothing to estimate from yet; keep probing
		return 1, nil
	}
	answerProbability := float64(totals.Answered) / float64(totals.Calls)
	meanTalkSeconds := float64(totals.AgentTalkTime) / float64(totals.Talked) / float64(OneSecond)
	if meanTalkSeconds <= 0 {
		return 1, nil
	}

	target := float64(v.Agents().Free) * s.cfg.DesiredOccupancy
	intervalSeconds := float64(s.interval) / float64(OneSecond)
	rate := target/(answerProbability*meanTalkSeconds)*intervalSeconds - float64(inProgress(v))

	trunksInUse := inProgress(v) + v.NumTalking()
	limit := float64(max(s.cfg.AvailableTrunks-trunksInUse, 0))
	n := int(math.Floor(math.Min(math.Max(rate, 0), limit)))

	v.Logger().Debugf("[tick %07d] analytic: p=%.3f talk=%.1fs target=%.1f rate=%.2f launch=%d",
		now, answerProbability, meanTalkSeconds, target, rate, n)
	return n, nil
}
