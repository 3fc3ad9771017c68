package workload

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/dialer-sim/dialer-sim/sim"
)

func TestSynthesize_ProducesValidRecords(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	cfg.Count = 500

	records, err := Synthesize(cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(records) != 500 {
		t.Fatalf("len = %d, want 500", len(records))
	}

	ids := make(map[string]bool)
	answered, queued := 0, 0
	for i, r := range records {
		if ids[r.UniqueID] {
			t.Fatalf("record %d: duplicate id %s", i, r.UniqueID)
		}
		ids[r.UniqueID] = true
		if i > 0 && !r.Start.After(records[i-1].Start) {
			t.Errorf("record %d: start %v not after previous", i, r.Start)
		}
		if got := r.End.Sub(r.Start).Milliseconds(); got != r.DisconnectOffset() {
			t.Errorf("record %d: end-start = %d, disconnect offset = %d", i, got, r.DisconnectOffset())
		}
		switch {
		case sim.IsAnsweredOutcome(r.OutcomeCode):
			answered++
			if r.DisconnectOffset() < cfg.AnsweredMinMs || r.DisconnectOffset() > cfg.AnsweredMaxMs {
				t.Errorf("record %d: answered duration %d out of range", i, r.DisconnectOffset())
			}
		case sim.IsUnansweredOutcome(r.OutcomeCode):
			if r.Queued {
				t.Errorf("record %d: unanswered call flagged as queued", i)
			}
		default:
			t.Errorf("record %d: unknown outcome %q", i, r.OutcomeCode)
		}
		if r.Queued {
			queued++
			if r.QueuedStart.IsZero() || r.QueuedEnd.Before(r.QueuedStart) {
				t.Errorf("record %d: queued window [%v, %v]", i, r.QueuedStart, r.QueuedEnd)
			}
		}
	}

	// 75% of the default mix is answered.
	if answered < 325 || answered > 425 {
		t.Errorf("answered = %d, want about 375", answered)
	}
	if queued == 0 || queued >= answered {
		t.Errorf("queued = %d of %d answered", queued, answered)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	cfg.Count = 50

	a, err := Synthesize(cfg, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Synthesize(cfg, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different call lists")
	}

	c, err := Synthesize(cfg, rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatal(err)
	}
	if a[0].UniqueID == c[0].UniqueID {
		t.Error("different seeds produced the same ids")
	}
}

func TestSynthesize_SingleOutcome(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	cfg.Count = 20
	cfg.Outcomes = []OutcomeWeight{{Code: "NU", Weight: 1}, {Code: "AC", Weight: 0}}

	records, err := Synthesize(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range records {
		if r.OutcomeCode != "NU" {
			t.Errorf("record %d: outcome %q, want NU", i, r.OutcomeCode)
		}
	}
}

func TestSynthesize_Zero(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	cfg.Count = 0
	records, err := Synthesize(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("len = %d, want 0", len(records))
	}
}

func TestSynthesize_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SynthesisConfig)
	}{
		{"negative count", func(c *SynthesisConfig) { c.Count = -1 }},
		{"unknown outcome", func(c *SynthesisConfig) { c.Outcomes = []OutcomeWeight{{Code: "ZZ", Weight: 1}} }},
		{"zero weights", func(c *SynthesisConfig) { c.Outcomes = []OutcomeWeight{{Code: "AC", Weight: 0}} }},
		{"no outcomes", func(c *SynthesisConfig) { c.Outcomes = nil }},
		{"inverted range", func(c *SynthesisConfig) { c.AnsweredMinMs, c.AnsweredMaxMs = 10, 5 }},
		{"queued fraction", func(c *SynthesisConfig) { c.QueuedFraction = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSynthesisConfig()
			tt.mutate(&cfg)
			_, err := Synthesize(cfg, rand.New(rand.NewSource(1)))
			if !errors.Is(err, errInvalidSynthesis) {
				t.Errorf("err = %v, want errInvalidSynthesis", err)
			}
		})
	}
}
