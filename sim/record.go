// Defines the historical call records replayed by the engine.

package sim

import "time"

// SeedCallRecord is one historical call outcome. Records are values: the engine
// copies them into live Calls and never mutates the source data.
type SeedCallRecord struct {
	UniqueID    string
	Start       time.Time
	End         time.Time
	OutcomeCode string
	CauseCode   int

	// Offsets from Start, in milliseconds. OffsetDisconnectMs is zero when the
	// source row did not carry one; see DisconnectOffset.
	OffsetConnectMs    int64
	OffsetDisconnectMs int64

	QueuedStart        time.Time // zero when the call never queued
	QueuedEnd          time.Time
	Queued             bool
	TransferredToAgent bool
}

// DisconnectOffset returns the disconnect offset in milliseconds, back-computed
// from End-Start when the recorded offset is zero.
//
// For answered outcome codes this doubles as the time to pickup when dialing,
// and as the talk duration once the call reaches an agent.
func (r SeedCallRecord) DisconnectOffset() int64 {
	if r.OffsetDisconnectMs != 0 {
		return r.OffsetDisconnectMs
	}
	return r.End.Sub(r.Start).Milliseconds()
}

// QueuedCallSample is a historical record that spent time in the queue. Its
// disconnect offset is reused as the patience of a different, live queued call.
type QueuedCallSample struct {
	SeedCallRecord
}

// Patience returns how long, in milliseconds, a caller waits in the queue
// before hanging up.
func (q QueuedCallSample) Patience() int64 {
	return q.DisconnectOffset()
}

// SplitQueuedSamples returns the subset of records with the queued flag set,
// in their original order.
func SplitQueuedSamples(records []SeedCallRecord) []QueuedCallSample {
	var samples []QueuedCallSample
	for _, r := range records {
		if r.Queued {
			samples = append(samples, QueuedCallSample{SeedCallRecord: r})
		}
	}
	return samples
}
