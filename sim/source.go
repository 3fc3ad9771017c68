// Implements the CallRecordSource: a single-use FIFO of seed records and a
// cyclic cursor over queued-call patience samples.

package sim

// CallRecordSource supplies seed records to the engine, each at most once,
// plus an endlessly repeating supply of patience samples.
type CallRecordSource struct {
	records    []SeedCallRecord // unconsumed records, oldest first
	samples    []QueuedCallSample
	nextSample int
}

// NewCallRecordSource builds a source over copies of the given slices, so the
// caller may keep using its own.
func NewCallRecordSource(records []SeedCallRecord, samples []QueuedCallSample) *CallRecordSource {
	return &CallRecordSource{
		records: append([]SeedCallRecord(nil), records...),
		samples: append([]QueuedCallSample(nil), samples...),
	}
}

// NewCallRecordSourceFromRecords uses every record with the queued flag set as
// a patience sample.
func NewCallRecordSourceFromRecords(records []SeedCallRecord) *CallRecordSource {
	return NewCallRecordSource(records, SplitQueuedSamples(records))
}

// NextSeedRecord pops the oldest unconsumed record. The boolean is false once
// the source is exhausted.
func (s *CallRecordSource) NextSeedRecord() (SeedCallRecord, bool) {
	if len(s.records) == 0 {
		return SeedCallRecord{}, false
	}
	r := s.records[0]
	s.records = s.records[1:]
	return r, true
}

// NextPatienceSample returns the sample under the cursor and advances it,
// wrapping to the first sample past the end. Returns nil only when the source
// was built without samples.
func (s *CallRecordSource) NextPatienceSample() *QueuedCallSample {
	if len(s.samples) == 0 {
		return nil
	}
	if s.nextSample >= len(s.samples) {
		s.nextSample = 0
	}
	sample := s.samples[s.nextSample]
	s.nextSample++
	return &sample
}

// Remaining returns the number of unconsumed seed records.
func (s *CallRecordSource) Remaining() int {
	return len(s.records)
}

// PatienceSamples returns the full sample set. Callers must not modify it.
func (s *CallRecordSource) PatienceSamples() []QueuedCallSample {
	return s.samples
}
