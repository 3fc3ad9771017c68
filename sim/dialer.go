package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EngineView is the read-only window a DialerStrategy gets onto the engine.
// Slices returned by ConsumedRecords and PatienceSamples MUST NOT be modified.
type EngineView interface {
	Now() int64
	Config() Config
	ShiftOver() bool
	Agents() AgentPool
	NumCreated() int
	NumRinging() int
	NumQueued() int
	NumTalking() int
	Totals() Totals
	TalkTimeRatio() float64
	AbandonmentRate() float64
	ConsumedRecords() []SeedCallRecord
	PatienceSamples() []QueuedCallSample
	Logger() *logrus.Entry
}

// DialerStrategy decides how many new calls to launch. The engine calls
// CallsToLaunch once per tick before the shift ends. A returned error aborts
// the run.
type DialerStrategy interface {
	Name() string
	CallsToLaunch(view EngineView) (int, error)
}

// NewDialerStrategy creates the strategy named in cfg.Dialer.Strategy.
// Valid names are defined in ValidDialerStrategies (bundle.go).
// Panics on unrecognized names; Config.Validate rejects them first.
func NewDialerStrategy(cfg Config, rng *PartitionedRNG) DialerStrategy {
	d := cfg.Dialer
	if !IsValidDialerStrategy(d.Strategy) {
		panic(fmt.Sprintf("unknown dialer strategy %q", d.Strategy))
	}
	switch d.Strategy {
	case "constant":
		return NewConstantStrategy(d.Rate, d.IntervalMs, cfg.EpochMs)
	case "free-agent":
		return &FreeAgentStrategy{}
	case "analytic":
		return NewAnalyticStrategy(d.Analytic, d.IntervalMs, cfg.EpochMs, cfg.MaxAbandonmentRate)
	case "genetic":
		return NewGeneticStrategy(cfg, rng.ForSubsystem(SubsystemDialer))
	default:
		panic(fmt.Sprintf("unhandled dialer strategy %q", d.Strategy))
	}
}

// inProgress counts calls that may still need an agent.
func inProgress(v EngineView) int {
	return v.NumCreated() + v.NumRinging() + v.NumQueued()
}

// FreeAgentStrategy is the progressive dialer: it keeps exactly one call in
// flight for every idle agent.
type FreeAgentStrategy struct{}

func (s *FreeAgentStrategy) Name() string { return "free-agent" }

// CallsToLaunch returns free agents minus calls still ringing or waiting.
func (s *FreeAgentStrategy) CallsToLaunch(v EngineView) (int, error) {
	return max(0, v.Agents().Free-inProgress(v)), nil
}
