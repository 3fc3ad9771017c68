package cmd

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dialer-sim/dialer-sim/sim"
	"github.com/dialer-sim/dialer-sim/sim/metrics"
	"github.com/dialer-sim/dialer-sim/sim/trace"
	"github.com/dialer-sim/dialer-sim/sim/workload"
)

var (
	// CLI flags shared by run and tune
	configPath         string        // YAML config overlaid on the defaults
	callsPath          string        // Seed call list (.csv or .xlsx)
	syntheticCalls     int           // Synthesize this many seed calls instead of reading a file
	seed               int64         // Master seed
	strategy           string        // Dialer strategy name
	dialRate           float64       // Calls per dial interval
	dialInterval       time.Duration // Dial interval
	agents             int           // Agents logged on at shift start
	queueCapacity      int           // Maximum queued calls
	shiftDuration      time.Duration // Shift length
	reportInterval     time.Duration // Periodic report interval, 0 disables
	checkpointInterval time.Duration // History checkpoint interval, 0 disables
	maxAbandonment     float64       // Legal maximum abandonment rate
	stopImmediately    bool          // Stop as soon as the seed calls run out

	// Run outputs
	historyPath string // History CSV or XLSX
	summaryPath string // YAML run summary
	metricsPath string // Prometheus textfile
	pushGateway string // Prometheus Pushgateway URL
)

// runOutputs names the files written after a run. Empty paths are skipped.
type runOutputs struct {
	History     string
	Summary     string
	Metrics     string
	PushGateway string
}

// runCmd executes one simulated shift
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one shift of the dialer",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		records, err := loadRecords(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		out := runOutputs{History: historyPath, Summary: summaryPath, Metrics: metricsPath, PushGateway: pushGateway}
		if _, err := runSimulation(cfg, records, out); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// registerConfigFlags binds the configuration flags to cmd.
func registerConfigFlags(cmd *cobra.Command) {
	def := sim.DefaultConfig()
	ms := func(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file overlaid on the defaults")
	cmd.Flags().StringVar(&callsPath, "calls", "", "Seed call list (.csv or .xlsx)")
	cmd.Flags().IntVar(&syntheticCalls, "synthetic", 0, "Synthesize this many seed calls instead of reading --calls")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "Seed for all randomness")

	cmd.Flags().StringVar(&strategy, "strategy", def.Dialer.Strategy, "Dialer strategy (constant, free-agent, analytic, genetic)")
	cmd.Flags().Float64Var(&dialRate, "rate", def.Dialer.Rate, "Calls launched per dial interval")
	cmd.Flags().DurationVar(&dialInterval, "interval", ms(def.Dialer.IntervalMs), "Dial interval")
	cmd.Flags().IntVar(&agents, "agents", def.Agents, "Agents logged on at shift start")
	cmd.Flags().IntVar(&queueCapacity, "queue-capacity", def.QueueCapacity, "Maximum calls waiting for an agent")
	cmd.Flags().DurationVar(&shiftDuration, "shift", ms(def.ShiftDurationMs), "Shift length")
	cmd.Flags().DurationVar(&reportInterval, "report-interval", ms(def.ReportIntervalMs), "Periodic report interval (0 disables)")
	cmd.Flags().DurationVar(&checkpointInterval, "checkpoint-interval", ms(def.CheckpointIntervalMs), "History checkpoint interval (0 disables)")
	cmd.Flags().Float64Var(&maxAbandonment, "max-abandonment", def.MaxAbandonmentRate, "Legal maximum abandonment rate")
	cmd.Flags().BoolVar(&stopImmediately, "stop-immediately", def.StopImmediately, "Stop as soon as the seed calls run out")
}

// buildConfig layers the configuration: defaults, then --config, then every
// flag set explicitly on the command line or through the environment.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("strategy") {
		cfg.Dialer.Strategy = strategy
	}
	if changed("rate") {
		cfg.Dialer.Rate = dialRate
	}
	if changed("interval") {
		cfg.Dialer.IntervalMs = dialInterval.Milliseconds()
	}
	if changed("agents") {
		cfg.Agents = agents
	}
	if changed("queue-capacity") {
		cfg.QueueCapacity = queueCapacity
	}
	if changed("shift") {
		cfg.ShiftDurationMs = shiftDuration.Milliseconds()
	}
	if changed("report-interval") {
		cfg.ReportIntervalMs = reportInterval.Milliseconds()
	}
	if changed("checkpoint-interval") {
		cfg.CheckpointIntervalMs = checkpointInterval.Milliseconds()
	}
	if changed("max-abandonment") {
		cfg.MaxAbandonmentRate = maxAbandonment
	}
	if changed("stop-immediately") {
		cfg.StopImmediately = stopImmediately
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

// loadRecords reads --calls, or synthesizes --synthetic records from the
// workload stream of the configured seed.
func loadRecords(cfg sim.Config) ([]sim.SeedCallRecord, error) {
	switch {
	case callsPath != "":
		records, err := workload.Load(callsPath)
		if err != nil {
			return nil, err
		}
		logrus.Infof("Loaded %d seed calls from %s", len(records), callsPath)
		return records, nil
	case syntheticCalls > 0:
		synth := workload.DefaultSynthesisConfig()
		synth.Count = syntheticCalls
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemWorkload)
		records, err := workload.Synthesize(synth, rng)
		if err != nil {
			return nil, err
		}
		logrus.Infof("Synthesized %d seed calls", len(records))
		return records, nil
	default:
		return nil, errors.New("either --calls or --synthetic is required")
	}
}

// dialLevel reports the rate a strategy currently dials at, if it has one.
func dialLevel(s sim.DialerStrategy) (float64, bool) {
	switch st := s.(type) {
	case *sim.GeneticStrategy:
		return st.DialLevel(), true
	case *sim.ConstantStrategy:
		return st.Rate(), true
	default:
		return 0, false
	}
}

// runSimulation runs one shift and writes the requested outputs.
func runSimulation(cfg sim.Config, records []sim.SeedCallRecord, out runOutputs) (trace.RunSummary, error) {
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	opts := []sim.EngineOption{sim.WithLogger(log)}
	var collector *metrics.Collector
	if out.Metrics != "" || out.PushGateway != "" {
		collector = metrics.NewCollector(runID, cfg.Dialer.Strategy)
		opts = append(opts, sim.WithCheckpointHook(collector.Observe))
	}

	eng, err := sim.NewEngine(cfg, sim.NewCallRecordSourceFromRecords(records), opts...)
	if err != nil {
		return trace.RunSummary{}, err
	}
	log.Infof("Starting simulation: strategy=%s, agents=%d, queue=%d, shift=%s, seed calls=%d",
		eng.Strategy().Name(), cfg.Agents, cfg.QueueCapacity, sim.FormatClock(cfg.ShiftDurationMs), len(records))

	startTime := time.Now()
	if err := eng.Run(); err != nil {
		return trace.RunSummary{}, err
	}
	eng.EndReport()
	summary := trace.Summarize(runID, eng)

	if out.History != "" {
		if err := trace.WriteHistory(out.History, eng.History().Checkpoints()); err != nil {
			return summary, err
		}
		log.Infof("Wrote %d checkpoints to %s", eng.History().Len(), out.History)
	}
	if out.Summary != "" {
		if err := trace.WriteSummary(out.Summary, summary); err != nil {
			return summary, err
		}
	}
	if collector != nil {
		if last, ok := eng.History().Last(); !ok || last.Time != eng.Now() {
			collector.Observe(eng.Snapshot())
		}
		if level, ok := dialLevel(eng.Strategy()); ok {
			collector.SetDialLevel(level)
		}
		if out.Metrics != "" {
			if err := collector.WriteTextfile(out.Metrics); err != nil {
				return summary, err
			}
		}
		if out.PushGateway != "" {
			if err := collector.Push(out.PushGateway, "dialer_sim"); err != nil {
				return summary, err
			}
		}
	}

	log.Infof("Simulation complete in %s", time.Since(startTime).Round(time.Millisecond))
	return summary, nil
}

func init() {
	registerConfigFlags(runCmd)
	runCmd.Flags().StringVar(&historyPath, "history", "", "Write checkpoint history to this .csv or .xlsx file")
	runCmd.Flags().StringVar(&summaryPath, "summary", "", "Write a YAML run summary to this file")
	runCmd.Flags().StringVar(&metricsPath, "metrics", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().StringVar(&pushGateway, "push-gateway", "", "Push Prometheus metrics to this Pushgateway URL")
}

