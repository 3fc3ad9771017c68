package evolve

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geneSet = " abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ!.,"

func matches(target []rune) func([]rune) float64 {
	return func(guess []rune) float64 {
		n := 0
		for i := range target {
			if guess[i] == target[i] {
				n++
			}
		}
		return float64(n)
	}
}

func TestOptimize_GuessesString(t *testing.T) {
	// GIVEN a target phrase and a gene set containing its characters
	target := []rune("Hello World!")

	// WHEN searching with the built-in create and mutate
	best, err := Optimize(context.Background(), Config[rune]{
		Fitness:        matches(target),
		GeneSet:        []rune(geneSet),
		Length:         len(target),
		Optimal:        func(f float64) bool { return f >= float64(len(target)) },
		MaxGenerations: 200000,
		Rand:           rand.New(rand.NewSource(3)),
	})

	// THEN the phrase is found
	require.NoError(t, err)
	assert.Equal(t, string(target), string(best.Genes))
}

func TestOptimize_CustomOperatorsFindMaximum(t *testing.T) {
	// GIVEN a single real gene and fitness peaking at x=3
	cfg := Config[float64]{
		Fitness: func(g []float64) float64 { return -(g[0] - 3) * (g[0] - 3) },
		Create:  func(rng *rand.Rand) []float64 { return []float64{rng.Float64() * 20} },
		Mutate: func(rng *rand.Rand, g []float64) {
			g[0] += rng.NormFloat64() * 0.5
		},
		Crossover: func(rng *rand.Rand, a, b []float64) []float64 {
			w := rng.Float64()
			return []float64{w*a[0] + (1-w)*b[0]}
		},
		Optimal:        func(f float64) bool { return f > -1e-4 },
		PoolSize:       4,
		MaxAge:         20,
		MaxGenerations: 100000,
		Rand:           rand.New(rand.NewSource(8)),
	}

	best, err := Optimize(context.Background(), cfg)

	require.NoError(t, err)
	assert.InDelta(t, 3.0, best.Genes[0], 0.01)
}

func TestOptimize_BestIsFittestEvaluated(t *testing.T) {
	// GIVEN a bumpy fitness landscape and aging enabled
	var evaluated []float64
	fitness := func(g []float64) float64 {
		f := math.Sin(g[0]) * g[0]
		evaluated = append(evaluated, f)
		return f
	}
	var improvements []float64
	best, err := Optimize(context.Background(), Config[float64]{
		Fitness:        fitness,
		Create:         func(rng *rand.Rand) []float64 { return []float64{rng.Float64() * 10} },
		Mutate:         func(rng *rand.Rand, g []float64) { g[0] += rng.NormFloat64() },
		PoolSize:       3,
		MaxAge:         5,
		MaxGenerations: 2000,
		OnImprovement:  func(c Chromosome[float64]) { improvements = append(improvements, c.Fitness) },
		Rand:           rand.New(rand.NewSource(21)),
	})
	require.NoError(t, err)

	// THEN the returned candidate is the best ever evaluated and improvements strictly increase
	highest := math.Inf(-1)
	for _, f := range evaluated {
		highest = math.Max(highest, f)
	}
	assert.Equal(t, highest, best.Fitness)
	for i := 1; i < len(improvements); i++ {
		assert.Greater(t, improvements[i], improvements[i-1])
	}
	assert.Equal(t, best.Fitness, improvements[len(improvements)-1])
}

func TestOptimize_MaxGenerations(t *testing.T) {
	calls := 0
	_, err := Optimize(context.Background(), Config[rune]{
		Fitness:        func([]rune) float64 { calls++; return 0 },
		GeneSet:        []rune("ab"),
		Length:         4,
		PoolSize:       3,
		MaxGenerations: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 3+50, calls, "pool plus one child per generation")
}

func TestOptimize_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, err := Optimize(ctx, Config[rune]{
		Fitness: func([]rune) float64 { return 1 },
		GeneSet: []rune("ab"),
		Length:  2,
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, best.Genes, 2, "best-so-far is still returned")
}

func TestOptimize_TimeBudget(t *testing.T) {
	start := time.Now()
	best, err := Optimize(context.Background(), Config[rune]{
		Fitness:     func(g []rune) float64 { time.Sleep(time.Millisecond); return 0 },
		GeneSet:     []rune("ab"),
		Length:      2,
		MaxDuration: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Len(t, best.Genes, 2)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOptimize_CrossoverIndistinguishableFallsBackToMutate(t *testing.T) {
	crossovers := 0
	best, err := Optimize(context.Background(), Config[rune]{
		Fitness: matches([]rune("abab")),
		GeneSet: []rune("ab"),
		Length:  4,
		Crossover: func(_ *rand.Rand, _, _ []rune) []rune {
			crossovers++
			return nil
		},
		PoolSize:       2,
		Optimal:        func(f float64) bool { return f >= 4 },
		MaxGenerations: 10000,
		Rand:           rand.New(rand.NewSource(5)),
	})
	require.NoError(t, err)
	assert.Equal(t, "abab", string(best.Genes))
	assert.Greater(t, crossovers, 0)
}

func TestOptimize_Deterministic(t *testing.T) {
	run := func() Chromosome[float64] {
		best, err := Optimize(context.Background(), Config[float64]{
			Fitness:        func(g []float64) float64 { return -math.Abs(g[0] - 1.5) },
			Create:         func(rng *rand.Rand) []float64 { return []float64{rng.Float64() * 5} },
			Mutate:         func(rng *rand.Rand, g []float64) { g[0] += rng.NormFloat64() * 0.1 },
			MaxGenerations: 500,
			Rand:           rand.New(rand.NewSource(99)),
		})
		require.NoError(t, err)
		return best
	}
	assert.Equal(t, run(), run())
}

func TestOptimize_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config[rune]
		want error
	}{
		{"no fitness", Config[rune]{GeneSet: []rune("ab"), Length: 1, MaxGenerations: 1}, ErrNoFitness},
		{"no generator", Config[rune]{Fitness: func([]rune) float64 { return 0 }, MaxGenerations: 1}, ErrNoGenerator},
		{"no mutation", Config[rune]{
			Fitness:        func([]rune) float64 { return 0 },
			Create:         func(*rand.Rand) []rune { return []rune("a") },
			MaxGenerations: 1,
		}, ErrNoMutation},
		{"unbounded", Config[rune]{Fitness: func([]rune) float64 { return 0 }, GeneSet: []rune("ab"), Length: 1}, ErrUnbounded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Optimize(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "crossover", Crossover.String())
	assert.Equal(t, "Strategy(7)", Strategy(7).String())
}
