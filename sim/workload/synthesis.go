package workload

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dialer-sim/dialer-sim/sim"
)

// OutcomeWeight is the relative frequency of one outcome code.
type OutcomeWeight struct {
	Code   string  `yaml:"code"`
	Weight float64 `yaml:"weight"`
}

// SynthesisConfig describes a synthetic call list.
type SynthesisConfig struct {
	Count     int       `yaml:"count"`
	Start     time.Time `yaml:"start"`
	SpacingMs int64     `yaml:"spacing_ms"` // gap between consecutive call starts

	Outcomes []OutcomeWeight `yaml:"outcomes"`

	// Durations are sampled from a triangular distribution on [Min, Max].
	// Answered durations cover both pickup and conversation.
	AnsweredMinMs   int64 `yaml:"answered_min_ms"`
	AnsweredMaxMs   int64 `yaml:"answered_max_ms"`
	UnansweredMinMs int64 `yaml:"unanswered_min_ms"`
	UnansweredMaxMs int64 `yaml:"unanswered_max_ms"`

	// QueuedFraction of answered calls are flagged as having queued. Their
	// durations become patience samples.
	QueuedFraction float64 `yaml:"queued_fraction"`
}

// DefaultSynthesisConfig is a mid-sized outbound campaign: three in four
// dials are answered.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Count:     1000,
		Start:     time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		SpacingMs: 1000,
		Outcomes: []OutcomeWeight{
			{Code: "AC", Weight: 0.55},
			{Code: "TR", Weight: 0.15},
			{Code: "QT", Weight: 0.05},
			{Code: "NU", Weight: 0.1},
			{Code: "AM", Weight: 0.1},
			{Code: "O", Weight: 0.05},
		},
		AnsweredMinMs:   5000,
		AnsweredMaxMs:   120000,
		UnansweredMinMs: 4000,
		UnansweredMaxMs: 30000,
		QueuedFraction:  0.2,
	}
}

var errInvalidSynthesis = errors.New("invalid synthesis config")

func (c SynthesisConfig) validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", errInvalidSynthesis, fmt.Sprintf(format, args...))
	}
	if c.Count < 0 {
		return invalid("count must be >= 0, got %d", c.Count)
	}
	if c.SpacingMs < 0 {
		return invalid("spacing_ms must be >= 0, got %d", c.SpacingMs)
	}
	if c.AnsweredMinMs < 0 || c.AnsweredMaxMs < c.AnsweredMinMs {
		return invalid("answered duration range [%d, %d]", c.AnsweredMinMs, c.AnsweredMaxMs)
	}
	if c.UnansweredMinMs < 0 || c.UnansweredMaxMs < c.UnansweredMinMs {
		return invalid("unanswered duration range [%d, %d]", c.UnansweredMinMs, c.UnansweredMaxMs)
	}
	if c.QueuedFraction < 0 || c.QueuedFraction > 1 {
		return invalid("queued_fraction must be in [0, 1], got %g", c.QueuedFraction)
	}
	total := 0.0
	for _, o := range c.Outcomes {
		if !sim.IsAnsweredOutcome(o.Code) && !sim.IsUnansweredOutcome(o.Code) {
			return invalid("unknown outcome code %q", o.Code)
		}
		if o.Weight < 0 {
			return invalid("outcome %q has negative weight", o.Code)
		}
		total += o.Weight
	}
	if total <= 0 {
		return invalid("outcome weights must sum to > 0")
	}
	return nil
}

// Synthesize generates a call list. The output depends only on cfg and the
// state of rng: ids are drawn from rng too, so a fixed seed reproduces the
// same file.
func Synthesize(cfg SynthesisConfig, rng *rand.Rand) ([]sim.SeedCallRecord, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	total := 0.0
	for _, o := range cfg.Outcomes {
		total += o.Weight
	}

	records := make([]sim.SeedCallRecord, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("generating id for record %d: %w", i, err)
		}
		code := pickOutcome(cfg.Outcomes, total, rng)
		start := cfg.Start.Add(time.Duration(int64(i)*cfg.SpacingMs) * time.Millisecond)

		rec := sim.SeedCallRecord{UniqueID: id.String(), Start: start, OutcomeCode: code}
		if sim.IsAnsweredOutcome(code) {
			rec.OffsetDisconnectMs = sampleMs(rng, cfg.AnsweredMinMs, cfg.AnsweredMaxMs)
			rec.OffsetConnectMs = min(sim.CallCreationDelay, rec.OffsetDisconnectMs)
			rec.TransferredToAgent = true
			if rng.Float64() < cfg.QueuedFraction {
				rec.Queued = true
				rec.QueuedStart = start.Add(time.Duration(rec.OffsetConnectMs) * time.Millisecond)
				rec.QueuedEnd = start.Add(time.Duration(rec.OffsetDisconnectMs) * time.Millisecond)
			}
		} else {
			rec.OffsetDisconnectMs = sampleMs(rng, cfg.UnansweredMinMs, cfg.UnansweredMaxMs)
		}
		rec.End = start.Add(time.Duration(rec.OffsetDisconnectMs) * time.Millisecond)
		records = append(records, rec)
	}
	return records, nil
}

func pickOutcome(outcomes []OutcomeWeight, total float64, rng *rand.Rand) string {
	r := rng.Float64() * total
	for _, o := range outcomes {
		if r < o.Weight {
			return o.Code
		}
		r -= o.Weight
	}
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].Weight > 0 {
			return outcomes[i].Code
		}
	}
	return outcomes[len(outcomes)-1].Code
}

func sampleMs(rng *rand.Rand, low, high int64) int64 {
	return int64(sim.Triangular(rng, float64(low), float64(high)))
}
