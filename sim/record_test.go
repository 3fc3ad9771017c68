package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeedCallRecord_DisconnectOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		span   time.Duration
		want   int64
	}{
		{"recorded offset wins", 4000, 9 * time.Second, 4000},
		{"zero offset back-computed from end-start", 0, 9500 * time.Millisecond, 9500},
		{"zero offset and zero span", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SeedCallRecord{Start: testEpoch, End: testEpoch.Add(tt.span), OffsetDisconnectMs: tt.offset}
			assert.Equal(t, tt.want, r.DisconnectOffset())
		})
	}
}

func TestQueuedCallSample_Patience(t *testing.T) {
	s := QueuedCallSample{SeedCallRecord: testRecord("p", "QD", 7000)}
	assert.Equal(t, int64(7000), s.Patience())
}

func TestSplitQueuedSamples_KeepsOrder(t *testing.T) {
	records := []SeedCallRecord{
		{UniqueID: "a", Queued: true},
		{UniqueID: "b"},
		{UniqueID: "c", Queued: true},
	}
	samples := SplitQueuedSamples(records)
	if assert.Len(t, samples, 2) {
		assert.Equal(t, "a", samples[0].UniqueID)
		assert.Equal(t, "c", samples[1].UniqueID)
	}
	assert.Empty(t, SplitQueuedSamples(nil))
}
