package sim

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// SimulationKey identifies a reproducible run. Two runs with the same key,
// configuration and seed data MUST produce identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemWorkload drives synthetic seed data. Uses the master seed directly.
	SubsystemWorkload = "workload"

	// SubsystemDialer drives randomized dialer strategies (genetic search).
	SubsystemDialer = "dialer"

	// SubsystemOptimizer drives the generic evolutionary optimizer.
	SubsystemOptimizer = "optimizer"
)

// PartitionedRNG hands out one deterministic *rand.Rand per named subsystem,
// so drawing from one subsystem never shifts the sequence of another.
//
// Derivation: SubsystemWorkload uses the master seed; every other subsystem
// uses masterSeed XOR fnv1a64(name).
//
// Not safe for concurrent use.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG for the named subsystem, creating it on first
// use. Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derivedSeed := int64(p.key)
	if name != SubsystemWorkload {
		derivedSeed ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// Triangular samples the triangular distribution on [low, high] with the mode
// at the midpoint. low may exceed high, in which case the roles swap; equal
// bounds return that bound.
func Triangular(rng *rand.Rand, low, high float64) float64 {
	u := rng.Float64()
	c := 0.5
	if u > c {
		u = 1 - u
		c = 1 - c
		low, high = high, low
	}
	return low + (high-low)*math.Sqrt(u*c)
}
