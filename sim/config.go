package sim

import "fmt"

// Simulated time is expressed in milliseconds.
const (
	OneSecond int64 = 1000
	OneMinute       = 60 * OneSecond
	OneHour         = 60 * OneMinute
)

// Config groups every constructor-time parameter of an Engine.
type Config struct {
	EpochMs              int64   `yaml:"epoch_ms"`               // simulated time advanced per tick
	QueueCapacity        int     `yaml:"queue_capacity"`         // max calls waiting for an agent
	ShiftDurationMs      int64   `yaml:"shift_duration_ms"`      // no calls are launched after this
	ReportIntervalMs     int64   `yaml:"report_interval_ms"`     // 0 disables periodic reports
	CheckpointIntervalMs int64   `yaml:"checkpoint_interval_ms"` // 0 disables history checkpoints
	Agents               int     `yaml:"agents"`
	MaxAbandonmentRate   float64 `yaml:"max_abandonment_rate"` // legal ceiling, as a fraction of answered calls
	StopImmediately      bool    `yaml:"stop_immediately"`     // stop as soon as the source is exhausted
	Seed                 int64   `yaml:"seed"`

	Dialer DialerConfig `yaml:"dialer"`
}

// DialerConfig selects and parameterizes the dialer strategy.
type DialerConfig struct {
	Strategy   string  `yaml:"strategy"`    // see ValidDialerStrategies
	Rate       float64 `yaml:"rate"`        // constant/genetic: calls per interval
	IntervalMs int64   `yaml:"interval_ms"` // constant/genetic/analytic launch interval

	Analytic AnalyticConfig `yaml:"analytic"`
	Genetic  GeneticConfig  `yaml:"genetic"`
}

// AnalyticConfig parameterizes the queueing-theory strategy.
type AnalyticConfig struct {
	WarmUpMs         int64   `yaml:"warm_up_ms"`        // 1 call/s is launched before this
	DesiredOccupancy float64 `yaml:"desired_occupancy"` // target fraction of agents busy
	AvailableTrunks  int     `yaml:"available_trunks"`
}

// GeneticConfig parameterizes the evolutionary re-optimization strategy.
type GeneticConfig struct {
	RecalcIntervalMs    int64   `yaml:"recalc_interval_ms"`
	RecalcWindowMs      int64   `yaml:"recalc_window_ms"` // history required before the first recalculation
	PopulationSize      int     `yaml:"population_size"`  // must be odd
	Generations         int     `yaml:"generations"`
	MutationProbability float64 `yaml:"mutation_probability"`
}

// DefaultConfig returns the reference configuration: 40 agents on a two hour
// shift, 100ms ticks, and a 1 call/s constant dialer.
func DefaultConfig() Config {
	return Config{
		EpochMs:              100,
		QueueCapacity:        20,
		ShiftDurationMs:      2 * OneHour,
		ReportIntervalMs:     10 * OneSecond,
		CheckpointIntervalMs: OneMinute,
		Agents:               40,
		MaxAbandonmentRate:   0.05,
		StopImmediately:      false,
		Seed:                 42,
		Dialer: DialerConfig{
			Strategy:   "constant",
			Rate:       1,
			IntervalMs: OneSecond,
			Analytic: AnalyticConfig{
				WarmUpMs:         OneMinute,
				DesiredOccupancy: 1,
				AvailableTrunks:  100000,
			},
			Genetic: GeneticConfig{
				RecalcIntervalMs:    30 * OneMinute,
				RecalcWindowMs:      10 * OneMinute,
				PopulationSize:      11,
				Generations:         20,
				MutationProbability: 0.1,
			},
		},
	}
}

// Validate checks parameter ranges. Every failure wraps ErrInvalidConfig.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if c.EpochMs <= 0 {
		return invalid("epoch_ms must be positive, got %d", c.EpochMs)
	}
	if c.QueueCapacity < 0 {
		return invalid("queue_capacity must be non-negative, got %d", c.QueueCapacity)
	}
	if c.ShiftDurationMs <= 0 {
		return invalid("shift_duration_ms must be positive, got %d", c.ShiftDurationMs)
	}
	if c.Agents < 0 {
		return invalid("agents must be non-negative, got %d", c.Agents)
	}
	intervals := []struct {
		name string
		v    int64
	}{
		{"report_interval_ms", c.ReportIntervalMs},
		{"checkpoint_interval_ms", c.CheckpointIntervalMs},
	}
	for _, iv := range intervals {
		if iv.v < 0 || iv.v%c.EpochMs != 0 {
			return invalid("%s must be a non-negative multiple of epoch_ms (%d), got %d", iv.name, c.EpochMs, iv.v)
		}
	}
	if c.MaxAbandonmentRate < 0 || c.MaxAbandonmentRate > 1 {
		return invalid("max_abandonment_rate must be within [0, 1], got %f", c.MaxAbandonmentRate)
	}
	return c.Dialer.validate(c.EpochMs, invalid)
}

func (d DialerConfig) validate(epoch int64, invalid func(string, ...any) error) error {
	if !IsValidDialerStrategy(d.Strategy) {
		return invalid("unknown dialer strategy %q", d.Strategy)
	}
	if d.Rate < 0 {
		return invalid("dialer rate must be non-negative, got %f", d.Rate)
	}
	a := d.Analytic
	if a.WarmUpMs < 0 {
		return invalid("warm_up_ms must be non-negative, got %d", a.WarmUpMs)
	}
	if a.DesiredOccupancy <= 0 || a.DesiredOccupancy > 1 {
		return invalid("desired_occupancy must be within (0, 1], got %f", a.DesiredOccupancy)
	}
	if a.AvailableTrunks < 0 {
		return invalid("available_trunks must be non-negative, got %d", a.AvailableTrunks)
	}
	g := d.Genetic
	if g.RecalcIntervalMs <= 0 || g.RecalcIntervalMs%epoch != 0 {
		return invalid("recalc_interval_ms must be a positive multiple of epoch_ms (%d), got %d", epoch, g.RecalcIntervalMs)
	}
	if g.RecalcWindowMs < 0 {
		return invalid("recalc_window_ms must be non-negative, got %d", g.RecalcWindowMs)
	}
	if g.PopulationSize < 3 || g.PopulationSize%2 != 1 {
		return invalid("population_size must be odd and at least 3, got %d", g.PopulationSize)
	}
	if g.Generations < 1 {
		return invalid("generations must be at least 1, got %d", g.Generations)
	}
	if g.MutationProbability < 0 || g.MutationProbability > 1 {
		return invalid("mutation_probability must be within [0, 1], got %f", g.MutationProbability)
	}
	return nil
}
