package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dialer-sim/dialer-sim/sim"
	"github.com/dialer-sim/dialer-sim/sim/evolve"
)

var (
	// CLI flags for the dial level search
	tuneGenerations int           // Candidates evaluated after the initial pool
	tunePool        int           // Pool size
	tuneMaxAge      int           // Generations a line may stagnate before annealing
	tuneTimeout     time.Duration // Wall-clock search budget, 0 disables
	tuneMaxLevel    float64       // Upper bound on the dial level, 0 means agents/4
)

// tuneOptions bounds a dial level search.
type tuneOptions struct {
	Generations int
	PoolSize    int
	MaxAge      int
	Timeout     time.Duration
	MaxLevel    float64
}

// tuneResult is the best constant dial level found for a call list.
type tuneResult struct {
	DialLevel       float64 `yaml:"dial_level"`
	Fitness         float64 `yaml:"fitness"`
	TalkTimeRatio   float64 `yaml:"talk_time_ratio"`
	AbandonmentRate float64 `yaml:"abandonment_rate"`
	Calls           int     `yaml:"total_number_calls"`
	Evaluations     int     `yaml:"evaluations"`
}

// tuneCmd searches for the constant dial level that maximizes talk time
var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Search for the best constant dial level over a call list",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		records, err := loadRecords(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := tuneOptions{
			Generations: tuneGenerations,
			PoolSize:    tunePool,
			MaxAge:      tuneMaxAge,
			Timeout:     tuneTimeout,
			MaxLevel:    tuneMaxLevel,
		}
		res, err := tuneDialLevel(cmd.Context(), cfg, records, opts)
		if err != nil {
			logrus.Fatalf("Tuning failed: %v", err)
		}
		if err := writeTuneResult(cmd.OutOrStdout(), res); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// tuneDialLevel evolves a single dial-level gene. Each candidate is scored by
// replaying the whole call list at that level; the score is the same one the
// genetic strategy uses.
func tuneDialLevel(ctx context.Context, cfg sim.Config, records []sim.SeedCallRecord, opts tuneOptions) (tuneResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	maxLevel := opts.MaxLevel
	if maxLevel <= 0 {
		maxLevel = float64(cfg.Agents) / 4
	}
	if maxLevel <= 0 {
		return tuneResult{}, fmt.Errorf("tune: no room to search, max dial level is %g", maxLevel)
	}
	samples := sim.SplitQueuedSamples(records)
	clamp := func(x float64) float64 { return math.Min(math.Max(x, 0), maxLevel) }

	var (
		evalErr     error
		evaluations int
	)
	fitness := func(genes []float64) float64 {
		evaluations++
		res, err := sim.EvaluateDialLevel(cfg, records, samples, genes[0])
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			return math.Inf(-1)
		}
		return res.Fitness(cfg.MaxAbandonmentRate)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemOptimizer)
	best, err := evolve.Optimize(ctx, evolve.Config[float64]{
		Fitness: fitness,
		Create: func(rng *rand.Rand) []float64 {
			return []float64{rng.Float64() * maxLevel}
		},
		Mutate: func(rng *rand.Rand, genes []float64) {
			if genes[0] == 0 {
				genes[0] = rng.Float64() * maxLevel
				return
			}
			genes[0] = clamp(sim.Triangular(rng, 0.5*genes[0], 1.5*genes[0]))
		},
		Crossover: func(rng *rand.Rand, parent, donor []float64) []float64 {
			if math.Abs(parent[0]-donor[0]) < 1e-6 {
				return nil
			}
			w := rng.Float64()
			return []float64{clamp(w*parent[0] + (1-w)*donor[0])}
		},
		MaxAge:         opts.MaxAge,
		PoolSize:       opts.PoolSize,
		MaxDuration:    opts.Timeout,
		MaxGenerations: opts.Generations,
		OnImprovement: func(c evolve.Chromosome[float64]) {
			logrus.Infof("Dial level %.4f scores %.4f (%s)", c.Genes[0], c.Fitness, c.Strategy)
		},
		Rand: rng,
	})
	if evalErr != nil {
		return tuneResult{}, evalErr
	}
	if err != nil && ctx.Err() == nil {
		return tuneResult{}, err
	}
	if err != nil {
		logrus.Warnf("Search interrupted, reporting best so far: %v", err)
	}

	replay, rerr := sim.EvaluateDialLevel(cfg, records, samples, best.Genes[0])
	if rerr != nil {
		return tuneResult{}, rerr
	}
	return tuneResult{
		DialLevel:       best.Genes[0],
		Fitness:         best.Fitness,
		TalkTimeRatio:   replay.TalkTimeRatio,
		AbandonmentRate: replay.AbandonmentRate,
		Calls:           replay.Totals.Calls,
		Evaluations:     evaluations,
	}, nil
}

func writeTuneResult(w io.Writer, res tuneResult) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(res); err != nil {
		_ = enc.Close()
		return fmt.Errorf("writing tune result: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("writing tune result: %w", err)
	}
	return nil
}

func init() {
	registerConfigFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&tuneGenerations, "generations", 200, "Candidates evaluated after the initial pool")
	tuneCmd.Flags().IntVar(&tunePool, "pool", 5, "Candidate pool size")
	tuneCmd.Flags().IntVar(&tuneMaxAge, "max-age", 20, "Generations a candidate may stagnate before annealing (0 disables)")
	tuneCmd.Flags().DurationVar(&tuneTimeout, "timeout", 0, "Wall-clock budget for the search (0 disables)")
	tuneCmd.Flags().Float64Var(&tuneMaxLevel, "max-level", 0, "Upper bound on the dial level (0 means agents/4)")
}
