// Package sim provides the discrete-event predictive dialer simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - call.go: Call lifecycle (created → ringing → answered → queued/talking → disconnected) and its transition table
//   - source.go: the single-use supply of seed records and the cyclic supply of patience samples
//   - engine.go: the tick loop, bucket scans, agent accounting, shift end and termination
//
// # Architecture
//
// Every tick the Engine accrues agent time, delivers at most one matured event
// per live call, asks its DialerStrategy how many calls to launch, and records
// reports and checkpoints on their intervals. Sub-packages hold everything
// outside the kernel:
//   - sim/evolve/: generic evolutionary optimizer
//   - sim/workload/: seed-data loading (CSV, XLSX) and synthetic generation
//   - sim/trace/: history persistence (CSV, XLSX, YAML summary)
//   - sim/metrics/: Prometheus gauges fed from checkpoints
//
// # Key Interfaces
//
//   - DialerStrategy: number of calls to launch this tick given an EngineView
//   - EngineView: read-only counters a strategy may observe
//
// Strategies: ConstantStrategy, FreeAgentStrategy, AnalyticStrategy and
// GeneticStrategy. The genetic strategy scores candidate dial levels with
// EvaluateDialLevel, which replays consumed records through an isolated Engine.
package sim
