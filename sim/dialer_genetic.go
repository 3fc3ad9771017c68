package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// dialLevelStep separates the sampled halves of the initial population from
// the current dial level.
const dialLevelStep = 0.01

// Chromosome is one candidate dial level and the results of replaying it.
type Chromosome struct {
	DialLevel       float64
	TalkTime        float64 // talk-time ratio of the replay
	AbandonmentRate float64

	maxAbandonment float64
}

// Fitness is the replayed talk-time ratio, or the negative overage when the
// abandonment rate is above the legal maximum. Any violating candidate
// therefore loses to every compliant one.
func (c Chromosome) Fitness() float64 {
	return dialLevelFitness(c.TalkTime, c.AbandonmentRate, c.maxAbandonment)
}

func (c Chromosome) String() string {
	return fmt.Sprintf("dial level %.4f, talk time %.4f, abandonment rate %.4f",
		c.DialLevel, c.TalkTime, c.AbandonmentRate)
}

// GeneticStrategy dials at a constant level and periodically re-derives that
// level by evolving a population of candidates, each scored by replaying the
// recently consumed records through an isolated Engine.
type GeneticStrategy struct {
	constant     *ConstantStrategy
	base         Config
	cfg          GeneticConfig
	rng          *rand.Rand
	maxDialLevel float64
	log          *logrus.Entry

	replayFrom int       // index into the consumed records of the next replay slice
	levels     []float64 // adopted level after each recalculation
}

// NewGeneticStrategy starts from cfg.Dialer.Rate and draws all randomness
// from rng.
func NewGeneticStrategy(cfg Config, rng *rand.Rand) *GeneticStrategy {
	return &GeneticStrategy{
		constant:     NewConstantStrategy(cfg.Dialer.Rate, cfg.Dialer.IntervalMs, cfg.EpochMs),
		base:         cfg,
		cfg:          cfg.Dialer.Genetic,
		rng:          rng,
		maxDialLevel: float64(cfg.Agents) / 4,
		log:          logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (s *GeneticStrategy) Name() string { return "genetic" }

// DialLevel returns the level currently in use.
func (s *GeneticStrategy) DialLevel() float64 { return s.constant.Rate() }

// DialLevels returns the level adopted by every recalculation so far.
func (s *GeneticStrategy) DialLevels() []float64 {
	return append([]float64(nil), s.levels...)
}

// CallsToLaunch recalculates the dial level on recalculation boundaries once
// enough history exists, then dials like ConstantStrategy.
func (s *GeneticStrategy) CallsToLaunch(v EngineView) (int, error) {
	now := v.Now()
	if now%s.cfg.RecalcIntervalMs == 0 && now >= s.cfg.RecalcWindowMs && !v.ShiftOver() {
		s.log = v.Logger()
		consumed := v.ConsumedRecords()
		level, err := s.Recalculate(consumed[min(s.replayFrom, len(consumed)):], v.PatienceSamples())
		if err != nil {
			return 0, fmt.Errorf("recalculating dial level: %w", err)
		}
		s.replayFrom = len(consumed)
		s.constant.SetRate(level)
		s.levels = append(s.levels, level)
	}
	return s.constant.CallsToLaunch(v)
}

// Recalculate evolves the dial level over one replay slice and returns the
// fittest level of the final generation. With nothing to replay the current
// level is kept.
func (s *GeneticStrategy) Recalculate(records []SeedCallRecord, samples []QueuedCallSample) (float64, error) {
	if len(records) == 0 {
		s.log.Infof("No records to replay, keeping dial level %.4f", s.constant.Rate())
		return s.constant.Rate(), nil
	}
	s.log.Infof("Running genetic dial level search over %d records", len(records))

	population := s.initialPopulation(s.constant.Rate())
	for gen := 0; gen < s.cfg.Generations; gen++ {
		if err := s.evaluate(population, records, samples); err != nil {
			return 0, err
		}
		s.logPopulation(fmt.Sprintf("generation %d", gen), population)
		population = s.regenerate(population[:s.cfg.PopulationSize/2+1])
	}
	if err := s.evaluate(population, records, samples); err != nil {
		return 0, err
	}

	best := population[0]
	s.log.Infof("Completed genetic dial level search. Best %s", best)
	return best.DialLevel, nil
}

// initialPopulation samples half the population below the current level,
// half above it, and keeps the current level itself.
func (s *GeneticStrategy) initialPopulation(level float64) []Chromosome {
	split := s.cfg.PopulationSize / 2
	population := make([]Chromosome, 0, s.cfg.PopulationSize)
	for i := 0; i < split; i++ {
		population = append(population, s.chromosome(Triangular(s.rng, 0, level-dialLevelStep)))
	}
	population = append(population, s.chromosome(level))
	for i := 0; i < split; i++ {
		population = append(population, s.chromosome(Triangular(s.rng, level+dialLevelStep, s.maxDialLevel)))
	}
	return population
}

func (s *GeneticStrategy) chromosome(level float64) Chromosome {
	return Chromosome{
		DialLevel:      min(max(level, 0), s.maxDialLevel),
		maxAbandonment: s.base.MaxAbandonmentRate,
	}
}

// evaluate replays every candidate and sorts the population by descending
// fitness. Ties keep their population order.
func (s *GeneticStrategy) evaluate(population []Chromosome, records []SeedCallRecord, samples []QueuedCallSample) error {
	for i := range population {
		res, err := EvaluateDialLevel(s.base, records, samples, population[i].DialLevel)
		if err != nil {
			return err
		}
		population[i].TalkTime = res.TalkTimeRatio
		population[i].AbandonmentRate = res.AbandonmentRate
	}
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness() > population[j].Fitness()
	})
	return nil
}

// regenerate refills the population from parents with crossover children.
// The population never grows past its configured size.
func (s *GeneticStrategy) regenerate(parents []Chromosome) []Chromosome {
	population := make([]Chromosome, len(parents), s.cfg.PopulationSize)
	copy(population, parents)
	for len(population) < s.cfg.PopulationSize {
		i, j := s.rng.Intn(len(parents)), s.rng.Intn(len(parents))
		if i == j {
			continue
		}
		c1, c2 := s.crossover(parents[i], parents[j])
		population = append(population, c1)
		if len(population) < s.cfg.PopulationSize {
			population = append(population, c2)
		}
	}
	return population
}

func (s *GeneticStrategy) crossover(p1, p2 Chromosome) (Chromosome, Chromosome) {
	w := s.rng.Float64()
	c1 := s.chromosome(w*p1.DialLevel + (1-w)*p2.DialLevel)
	c2 := s.chromosome(w*p2.DialLevel + (1-w)*p1.DialLevel)
	return s.mutate(c1), s.mutate(c2)
}

func (s *GeneticStrategy) mutate(c Chromosome) Chromosome {
	if s.cfg.MutationProbability > s.rng.Float64() {
		from := c.DialLevel
		c = s.chromosome(Triangular(s.rng, from*0.5, from*1.5))
		s.log.Debugf("Mutated dial level from %.4f to %.4f", from, c.DialLevel)
	}
	return c
}

func (s *GeneticStrategy) logPopulation(label string, population []Chromosome) {
	if !s.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	s.log.Debugf("Population after %s:", label)
	for _, c := range population {
		s.log.Debugf("  %s", c)
	}
}
