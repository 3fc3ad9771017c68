package sim

import "github.com/sirupsen/logrus"

// ReplayResult is the outcome of replaying a record slice at one dial level.
type ReplayResult struct {
	TalkTimeRatio   float64
	AbandonmentRate float64
	Totals          Totals
}

// Fitness scores the replay: the talk-time ratio, or the negative overage
// when the abandonment rate is above maxAbandonment.
func (r ReplayResult) Fitness(maxAbandonment float64) float64 {
	return dialLevelFitness(r.TalkTimeRatio, r.AbandonmentRate, maxAbandonment)
}

func dialLevelFitness(talkTime, abandonment, maxAbandonment float64) float64 {
	if over := abandonment - maxAbandonment; over > 0 {
		return -over
	}
	return talkTime
}

// EvaluateDialLevel replays records through an isolated engine dialing at a
// constant level and stops as soon as the records run out. The engine shares
// nothing with the caller: it takes its own copies of records and samples.
// An empty slice or a non-positive level produces no activity.
func EvaluateDialLevel(cfg Config, records []SeedCallRecord, samples []QueuedCallSample, level float64) (ReplayResult, error) {
	if len(records) == 0 || level <= 0 {
		return ReplayResult{}, nil
	}
	sub := cfg
	sub.StopImmediately = true
	sub.ReportIntervalMs = 0
	sub.CheckpointIntervalMs = 0
	sub.Dialer.Strategy = "constant"
	sub.Dialer.Rate = level
	if err := sub.Validate(); err != nil {
		return ReplayResult{}, err
	}

	eng, err := NewEngine(sub, NewCallRecordSource(records, samples),
		WithStrategy(NewConstantStrategy(level, sub.Dialer.IntervalMs, sub.EpochMs)),
		WithLogger(replayLogger()))
	if err != nil {
		return ReplayResult{}, err
	}
	if err := eng.Run(); err != nil {
		return ReplayResult{}, err
	}
	return ReplayResult{
		TalkTimeRatio:   eng.TalkTimeRatio(),
		AbandonmentRate: eng.AbandonmentRate(),
		Totals:          eng.Totals(),
	}, nil
}

// replayLogger keeps replay engines quiet below warnings unless the standard
// logger is at trace.
func replayLogger() *logrus.Entry {
	std := logrus.StandardLogger()
	l := logrus.New()
	l.SetFormatter(std.Formatter)
	l.SetOutput(std.Out)
	l.SetLevel(logrus.WarnLevel)
	if std.IsLevelEnabled(logrus.TraceLevel) {
		l.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(l).WithField("replay", true)
}
