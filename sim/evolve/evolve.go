// Package evolve implements a generic evolutionary search over gene sequences.
//
// Optimize keeps a rotating pool of candidates. Each step derives a child from
// one pool member by mutation or crossover. A child that is not worse replaces
// its parent. A worse child is only accepted once its parent's line has aged
// past MaxAge, with a probability that decays the more historical best
// fitnesses the child falls below; otherwise the line restarts from the best
// candidate seen so far.
package evolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoFitness is returned when Config.Fitness is nil.
	ErrNoFitness = errors.New("evolve: fitness function is required")

	// ErrNoGenerator is returned when neither Create nor a usable GeneSet is given.
	ErrNoGenerator = errors.New("evolve: Create or GeneSet with Length is required")

	// ErrNoMutation is returned when Mutate is nil and GeneSet has fewer than two genes.
	ErrNoMutation = errors.New("evolve: Mutate or a GeneSet of at least two genes is required")

	// ErrUnbounded is returned when nothing can stop the search.
	ErrUnbounded = errors.New("evolve: one of Optimal, MaxDuration, MaxGenerations or a cancellable context is required")
)

// Strategy records how a chromosome was produced.
type Strategy int

const (
	Create Strategy = iota
	Mutate
	Crossover
)

func (s Strategy) String() string {
	switch s {
	case Create:
		return "create"
	case Mutate:
		return "mutate"
	case Crossover:
		return "crossover"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Chromosome is one candidate. Higher fitness is better.
type Chromosome[G any] struct {
	Genes    []G
	Fitness  float64
	Age      int
	Strategy Strategy
}

// Config parameterizes a search. Fitness is required, plus either Create or a
// GeneSet of at least two genes with a positive Length.
type Config[G comparable] struct {
	Fitness func(genes []G) float64

	// Create builds a new gene sequence. When nil, Length genes are drawn from GeneSet.
	Create  func(rng *rand.Rand) []G
	GeneSet []G
	Length  int

	// Mutate changes genes in place. When nil, one gene is swapped for a
	// different GeneSet value.
	Mutate func(rng *rand.Rand, genes []G)

	// Crossover combines two parents into a child. Returning nil means the
	// parents are indistinguishable: the donor is replaced by a fresh candidate
	// and the parent is mutated instead. Without Crossover the search only mutates.
	Crossover func(rng *rand.Rand, parent, donor []G) []G

	// Optimal stops the search once it reports true for the best fitness.
	Optimal func(fitness float64) bool

	MaxAge         int           // 0 never accepts a worse child
	PoolSize       int           // defaults to 1
	MaxDuration    time.Duration // 0 disables the time budget
	MaxGenerations int           // children to evaluate; 0 is unlimited

	// OnImprovement is called with every new best candidate.
	OnImprovement func(Chromosome[G])

	// Rand drives every random choice. Defaults to a source seeded with 1.
	Rand *rand.Rand
}

func (c *Config[G]) validate(ctx context.Context) error {
	if c.Fitness == nil {
		return ErrNoFitness
	}
	if c.Create == nil && (len(c.GeneSet) < 2 || c.Length <= 0) {
		return ErrNoGenerator
	}
	if c.Mutate == nil && len(c.GeneSet) < 2 {
		return ErrNoMutation
	}
	if c.Optimal == nil && c.MaxDuration <= 0 && c.MaxGenerations <= 0 && ctx.Done() == nil {
		return ErrUnbounded
	}
	return nil
}

type optimizer[G comparable] struct {
	cfg        Config[G]
	rng        *rand.Rand
	start      time.Time
	strategies []Strategy
	pool       []Chromosome[G]
	best       Chromosome[G]
	historical []float64 // fitness of every best-so-far, ascending
	optimal    bool
}

// Optimize searches for the fittest gene sequence. It returns the best
// candidate found when Optimal is satisfied, the time budget or generation
// limit is reached, or ctx is done; in the last case ctx.Err() is returned
// alongside the best candidate.
func Optimize[G comparable](ctx context.Context, cfg Config[G]) (Chromosome[G], error) {
	if err := cfg.validate(ctx); err != nil {
		return Chromosome[G]{}, err
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	o := &optimizer[G]{cfg: cfg, rng: cfg.Rand, start: time.Now(), strategies: []Strategy{Mutate}}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(1))
	}
	if cfg.Crossover != nil {
		o.strategies = append(o.strategies, Crossover)
	}
	return o.run(ctx)
}

func (o *optimizer[G]) run(ctx context.Context) (Chromosome[G], error) {
	o.best = o.generate()
	o.historical = []float64{o.best.Fitness}
	if o.timedOut() || o.improved(o.best) {
		return o.best, nil
	}

	o.pool = append(o.pool, o.best)
	for len(o.pool) < o.cfg.PoolSize {
		if err := ctx.Err(); err != nil {
			return o.best, err
		}
		if o.timedOut() {
			return o.best, nil
		}
		parent := o.generate()
		o.pool = append(o.pool, parent)
		if parent.Fitness > o.best.Fitness && o.promote(parent) {
			return o.best, nil
		}
	}

	last := len(o.pool) - 1
	p := 1
	for gen := 0; o.cfg.MaxGenerations <= 0 || gen < o.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return o.best, err
		}
		if o.timedOut() {
			return o.best, nil
		}
		if p > 0 {
			p--
		} else {
			p = last
		}
		if o.step(p) || o.optimal {
			return o.best, nil
		}
	}
	return o.best, nil
}

// step derives one child from pool[p] and reports whether the search is done.
func (o *optimizer[G]) step(p int) bool {
	parent := &o.pool[p]
	child := o.newChild(p)

	if parent.Fitness > child.Fitness {
		if o.cfg.MaxAge <= 0 {
			return false
		}
		parent.Age++
		if o.cfg.MaxAge > parent.Age {
			return false
		}
		index := sort.SearchFloat64s(o.historical, child.Fitness)
		proportionSimilar := float64(len(o.historical)-index) / float64(len(o.historical))
		if o.rng.Float64() < math.Exp(-proportionSimilar) {
			o.pool[p] = child
			return false
		}
		parent.Age = 0
		o.pool[p] = o.best
		return false
	}

	if !(child.Fitness > parent.Fitness) {
		child.Age = parent.Age + 1
		o.pool[p] = child
		return false
	}

	o.pool[p] = child
	if child.Fitness > o.best.Fitness {
		o.strategies = append(o.strategies, child.Strategy)
		return o.promote(child)
	}
	return false
}

// promote records c as the new best and reports whether it is optimal.
func (o *optimizer[G]) promote(c Chromosome[G]) bool {
	o.best = c
	o.historical = append(o.historical, c.Fitness)
	o.optimal = o.improved(c)
	return o.optimal
}

func (o *optimizer[G]) improved(c Chromosome[G]) bool {
	logrus.Debugf("evolve: new best fitness %v via %s after %s", c.Fitness, c.Strategy, time.Since(o.start))
	if o.cfg.OnImprovement != nil {
		o.cfg.OnImprovement(c)
	}
	return o.cfg.Optimal != nil && o.cfg.Optimal(c.Fitness)
}

func (o *optimizer[G]) timedOut() bool {
	return o.cfg.MaxDuration > 0 && time.Since(o.start) > o.cfg.MaxDuration
}

func (o *optimizer[G]) newChild(p int) Chromosome[G] {
	if o.cfg.Crossover == nil {
		return o.mutate(o.pool[p])
	}
	switch o.strategies[o.rng.Intn(len(o.strategies))] {
	case Crossover:
		return o.crossover(p)
	default:
		return o.mutate(o.pool[p])
	}
}

func (o *optimizer[G]) generate() Chromosome[G] {
	var genes []G
	if o.cfg.Create != nil {
		genes = o.cfg.Create(o.rng)
	} else {
		genes = make([]G, 0, o.cfg.Length)
		for len(genes) < o.cfg.Length {
			n := min(o.cfg.Length-len(genes), len(o.cfg.GeneSet))
			for _, i := range o.rng.Perm(len(o.cfg.GeneSet))[:n] {
				genes = append(genes, o.cfg.GeneSet[i])
			}
		}
	}
	return Chromosome[G]{Genes: genes, Fitness: o.cfg.Fitness(genes), Strategy: Create}
}

func (o *optimizer[G]) mutate(parent Chromosome[G]) Chromosome[G] {
	genes := slices.Clone(parent.Genes)
	if o.cfg.Mutate != nil {
		o.cfg.Mutate(o.rng, genes)
	} else if len(genes) > 0 {
		i := o.rng.Intn(len(genes))
		pick := o.rng.Perm(len(o.cfg.GeneSet))[:2]
		gene, alternate := o.cfg.GeneSet[pick[0]], o.cfg.GeneSet[pick[1]]
		if gene == genes[i] {
			gene = alternate
		}
		genes[i] = gene
	}
	return Chromosome[G]{Genes: genes, Fitness: o.cfg.Fitness(genes), Strategy: Mutate}
}

func (o *optimizer[G]) crossover(p int) Chromosome[G] {
	donor := o.rng.Intn(len(o.pool))
	if donor == p {
		donor = (donor + 1) % len(o.pool)
	}
	genes := o.cfg.Crossover(o.rng, slices.Clone(o.pool[p].Genes), o.pool[donor].Genes)
	if genes == nil {
		o.pool[donor] = o.generate()
		if o.pool[donor].Fitness > o.best.Fitness {
			o.promote(o.pool[donor])
		}
		return o.mutate(o.pool[p])
	}
	return Chromosome[G]{Genes: genes, Fitness: o.cfg.Fitness(genes), Strategy: Crossover}
}
