package trace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dialer-sim/dialer-sim/sim"
)

// RunSummary is the final state of one simulation run.
type RunSummary struct {
	RunID    string `yaml:"run_id"`
	Strategy string `yaml:"strategy"`
	Seed     int64  `yaml:"seed"`

	SimulatedMs int64  `yaml:"simulated_ms"`
	Clock       string `yaml:"clock"`

	sim.Totals `yaml:",inline"`

	AbandonmentRate float64 `yaml:"abandonment_rate"`
	TalkTimeRatio   float64 `yaml:"talk_time_ratio"`
	FreeAgents      int     `yaml:"free_agents"`
	TotalAgents     int     `yaml:"total_agents"`
	Checkpoints     int     `yaml:"checkpoints"`

	// DialLevels lists every level chosen by a re-optimizing strategy.
	DialLevels []float64 `yaml:"dial_levels,omitempty"`
}

// dialLevelReporter is implemented by strategies that re-tune their rate.
type dialLevelReporter interface {
	DialLevels() []float64
}

// Summarize captures the final state of a finished engine.
func Summarize(runID string, e *sim.Engine) RunSummary {
	s := RunSummary{
		RunID:           runID,
		Strategy:        e.Strategy().Name(),
		Seed:            e.Config().Seed,
		SimulatedMs:     e.Now(),
		Clock:           sim.FormatClock(e.Now()),
		Totals:          e.Totals(),
		AbandonmentRate: e.AbandonmentRate(),
		TalkTimeRatio:   e.TalkTimeRatio(),
		FreeAgents:      e.Agents().Free,
		TotalAgents:     e.Agents().Total,
		Checkpoints:     e.History().Len(),
	}
	if r, ok := e.Strategy().(dialLevelReporter); ok {
		s.DialLevels = r.DialLevels()
	}
	return s
}

// WriteSummary writes s as YAML.
func WriteSummary(path string, s RunSummary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunSummary{}, fmt.Errorf("reading run summary: %w", err)
	}
	var s RunSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return RunSummary{}, fmt.Errorf("parsing run summary: %w", err)
	}
	return s, nil
}
