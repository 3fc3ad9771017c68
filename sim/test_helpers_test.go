package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// testRecord builds a seed record whose disconnect offset is offsetMs.
func testRecord(id, outcome string, offsetMs int64) SeedCallRecord {
	return SeedCallRecord{
		UniqueID:           id,
		Start:              testEpoch,
		End:                testEpoch.Add(time.Duration(offsetMs) * time.Millisecond),
		OutcomeCode:        outcome,
		OffsetDisconnectMs: offsetMs,
	}
}

// testRecords builds n records with a fixed outcome mix: every fourth record
// is unanswered, the rest are answered, and every fifth record is flagged as
// queued so it also serves as a patience sample.
func testRecords(n int) []SeedCallRecord {
	records := make([]SeedCallRecord, n)
	for i := range records {
		var r SeedCallRecord
		if i%4 == 3 {
			r = testRecord(fmt.Sprintf("call-%03d", i), "NU", 4000+int64(i%5)*1000)
		} else {
			r = testRecord(fmt.Sprintf("call-%03d", i), "AC", 5000+int64(i%7)*1000)
		}
		r.Queued = i%5 == 0
		records[i] = r
	}
	return records
}

// testConfig is DefaultConfig without periodic reports.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReportIntervalMs = 0
	return cfg
}

// fakeView is a hand-set EngineView for strategy tests.
type fakeView struct {
	now       int64
	cfg       Config
	shiftOver bool
	agents    AgentPool
	created   int
	ringing   int
	queued    int
	talking   int
	totals    Totals
	talkTime  float64
	abandon   float64
	consumed  []SeedCallRecord
	samples   []QueuedCallSample
	log       *logrus.Entry
}

func (v *fakeView) Now() int64 { return v.now }
func (v *fakeView) Config() Config { return v.cfg }
func (v *fakeView) ShiftOver() bool { return v.shiftOver }
func (v *fakeView) Agents() AgentPool { return v.agents }
func (v *fakeView) NumCreated() int { return v.created }
func (v *fakeView) NumRinging() int { return v.ringing }
func (v *fakeView) NumQueued() int { return v.queued }
func (v *fakeView) NumTalking() int { return v.talking }
func (v *fakeView) Totals() Totals { return v.totals }
func (v *fakeView) TalkTimeRatio() float64 { return v.talkTime }
func (v *fakeView) AbandonmentRate() float64 { return v.abandon }
func (v *fakeView) ConsumedRecords() []SeedCallRecord { return v.consumed }
func (v *fakeView) PatienceSamples() []QueuedCallSample { return v.samples }

func (v *fakeView) Logger() *logrus.Entry {
	if v.log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return v.log
}
