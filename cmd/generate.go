package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dialer-sim/dialer-sim/sim"
	"github.com/dialer-sim/dialer-sim/sim/workload"
)

var (
	// CLI flags for synthetic call lists
	generateOut      string            // Output CSV path
	generateCount    int               // Number of calls
	generateSeed     int64             // Workload seed
	generateSpacing  time.Duration     // Gap between call starts
	generateQueued   float64           // Fraction of answered calls that queued
	generateOutcomes map[string]string // Outcome code -> weight
)

// generateCmd writes a synthetic seed call list
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic seed call list",
	Run: func(cmd *cobra.Command, args []string) {
		synth, err := synthesisConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := generateCallList(generateOut, synth, generateSeed); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// synthesisConfig overlays the generate flags on the default synthesis config.
func synthesisConfig(cmd *cobra.Command) (workload.SynthesisConfig, error) {
	synth := workload.DefaultSynthesisConfig()
	synth.Count = generateCount
	if cmd.Flags().Changed("spacing") {
		synth.SpacingMs = generateSpacing.Milliseconds()
	}
	if cmd.Flags().Changed("queued-fraction") {
		synth.QueuedFraction = generateQueued
	}
	if len(generateOutcomes) > 0 {
		outcomes, err := parseOutcomes(generateOutcomes)
		if err != nil {
			return workload.SynthesisConfig{}, err
		}
		synth.Outcomes = outcomes
	}
	return synth, nil
}

// parseOutcomes converts code=weight pairs, ordered by code so a seed always
// maps to the same file.
func parseOutcomes(pairs map[string]string) ([]workload.OutcomeWeight, error) {
	codes := make([]string, 0, len(pairs))
	for code := range pairs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	outcomes := make([]workload.OutcomeWeight, 0, len(codes))
	for _, code := range codes {
		w, err := strconv.ParseFloat(pairs[code], 64)
		if err != nil {
			return nil, fmt.Errorf("outcome %s: invalid weight %q", code, pairs[code])
		}
		outcomes = append(outcomes, workload.OutcomeWeight{Code: code, Weight: w})
	}
	return outcomes, nil
}

// generateCallList synthesizes a call list from the workload stream of seed
// and writes it to path.
func generateCallList(path string, synth workload.SynthesisConfig, seed int64) error {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemWorkload)
	records, err := workload.Synthesize(synth, rng)
	if err != nil {
		return err
	}
	if err := workload.WriteCSV(path, records); err != nil {
		return err
	}
	logrus.Infof("Wrote %d synthetic calls to %s", len(records), path)
	return nil
}

func init() {
	def := workload.DefaultSynthesisConfig()
	generateCmd.Flags().StringVar(&generateOut, "out", "calls.csv", "Output CSV file")
	generateCmd.Flags().IntVar(&generateCount, "count", def.Count, "Number of calls")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", sim.DefaultConfig().Seed, "Seed for call generation")
	generateCmd.Flags().DurationVar(&generateSpacing, "spacing", time.Duration(def.SpacingMs)*time.Millisecond, "Gap between call start times")
	generateCmd.Flags().Float64Var(&generateQueued, "queued-fraction", def.QueuedFraction, "Fraction of answered calls flagged as queued")
	generateCmd.Flags().StringToStringVar(&generateOutcomes, "outcomes", nil, "Outcome mix as code=weight pairs, e.g. AC=0.6,NU=0.4")
}
