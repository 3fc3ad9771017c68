// Defines the Call state machine: one live simulated call created from a seed
// record at launch time, with its precomputed schedule of future events.

package sim

import (
	"fmt"
	"sort"
)

// CallState is the lifecycle state of a live call.
type CallState int

const (
	StateCreated CallState = iota
	StateRinging
	StateAnswered
	StateQueued
	StateTalking
	StateDisconnected
)

// CallCreationDelay is the time, in milliseconds, between dialing and ringing.
const CallCreationDelay int64 = 3000

var (
	// unansweredOutcomes ring and then disconnect without reaching a person.
	unansweredOutcomes = map[string]bool{"O": true, "E": true, "AM": true, "NU": true, "CF": true}
	// answeredOutcomes ring and are then picked up by the remote end.
	answeredOutcomes = map[string]bool{"TR": true, "QD": true, "QT": true, "AC": true}
)

// transitions is the complete state machine. Disconnected is terminal.
var transitions = map[CallState][]CallState{
	StateCreated:      {StateRinging, StateDisconnected},
	StateRinging:      {StateAnswered, StateDisconnected},
	StateAnswered:     {StateTalking, StateQueued, StateDisconnected},
	StateQueued:       {StateTalking, StateDisconnected},
	StateTalking:      {StateDisconnected},
	StateDisconnected: {},
}

func (s CallState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRinging:
		return "ringing"
	case StateAnswered:
		return "answered"
	case StateQueued:
		return "queued"
	case StateTalking:
		return "talking"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("CallState(%d)", int(s))
	}
}

// CanTransitionTo reports whether the state machine allows s -> to.
func (s CallState) CanTransitionTo(to CallState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsAnsweredOutcome reports whether an outcome code is picked up by the remote end.
func IsAnsweredOutcome(code string) bool { return answeredOutcomes[code] }

// IsUnansweredOutcome reports whether an outcome code never reaches a person.
func IsUnansweredOutcome(code string) bool { return unansweredOutcomes[code] }

// CallEvent is a pending state change for one call.
type CallEvent struct {
	Time  int64     // simulated time, in ms, at which the event matures
	State CallState // state the call moves to
}

// Call is a live simulation instance of a SeedCallRecord.
type Call struct {
	record    SeedCallRecord
	state     CallState
	birthTime int64
	dialed    bool
	events    []CallEvent // sorted by Time, ties keep insertion order
}

// NewCall creates an undialed call for the given record.
func NewCall(record SeedCallRecord) *Call {
	return &Call{record: record}
}

func (c *Call) ID() string { return c.record.UniqueID }
func (c *Call) State() CallState { return c.state }
func (c *Call) BirthTime() int64 { return c.birthTime }
func (c *Call) OutcomeCode() string { return c.record.OutcomeCode }
func (c *Call) Record() SeedCallRecord { return c.record }
func (c *Call) PendingEvents() int { return len(c.events) }
func (c *Call) DisconnectOffset() int64 { return c.record.DisconnectOffset() }
func (c *Call) ConnectOffset() int64 { return c.record.OffsetConnectMs }

func (c *Call) String() string {
	return fmt.Sprintf("Call: (ID: %s, State: %s, Outcome: %s, Birth: %d)", c.ID(), c.state, c.OutcomeCode(), c.birthTime)
}

// Dial stores the birth time, puts the call in Created and computes its
// schedule from the outcome code. A call with an unknown outcome is left with
// no events and ErrUnknownOutcome is returned; the call itself stays valid.
//
// The second event never precedes Ringing: when the recorded offset is shorter
// than CallCreationDelay it fires at the ringing time instead.
func (c *Call) Dial(birthTime int64) error {
	if c.dialed {
		return &TransitionError{CallID: c.ID(), From: c.state, To: StateCreated}
	}
	c.dialed = true
	c.birthTime = birthTime
	c.state = StateCreated

	ringAt := birthTime + CallCreationDelay
	endAt := max(birthTime+c.DisconnectOffset(), ringAt)

	switch {
	case unansweredOutcomes[c.OutcomeCode()]:
		c.schedule(ringAt, StateRinging)
		c.schedule(endAt, StateDisconnected)
	case answeredOutcomes[c.OutcomeCode()]:
		c.schedule(ringAt, StateRinging)
		c.schedule(endAt, StateAnswered)
	default:
		return fmt.Errorf("call %s: %w %q", c.ID(), ErrUnknownOutcome, c.OutcomeCode())
	}
	return nil
}

// Talking moves the call to an agent and schedules the end of the conversation.
// Any pending queue-patience disconnect is cancelled.
func (c *Call) Talking(now int64) error {
	if err := c.moveTo(StateTalking); err != nil {
		return err
	}
	c.events = c.events[:0]
	c.schedule(now+c.DisconnectOffset(), StateDisconnected)
	return nil
}

// Queued parks the call in the queue. The caller hangs up after the patience
// of the given sample unless an agent picks the call up first. With no sample
// the caller waits indefinitely.
func (c *Call) Queued(now int64, sample *QueuedCallSample) error {
	if err := c.moveTo(StateQueued); err != nil {
		return err
	}
	if sample != nil {
		c.schedule(now+sample.Patience(), StateDisconnected)
	}
	return nil
}

// NextEvent removes and returns the earliest pending event if it matured
// strictly before now. At most one event is delivered per invocation.
func (c *Call) NextEvent(now int64) (CallEvent, bool) {
	if len(c.events) == 0 || c.events[0].Time >= now {
		return CallEvent{}, false
	}
	ev := c.events[0]
	c.events = c.events[1:]
	return ev, true
}

// moveTo applies one edge of the transition table.
func (c *Call) moveTo(to CallState) error {
	if !c.state.CanTransitionTo(to) {
		return &TransitionError{CallID: c.ID(), From: c.state, To: to}
	}
	c.state = to
	return nil
}

func (c *Call) schedule(at int64, state CallState) {
	i := sort.Search(len(c.events), func(i int) bool { return c.events[i].Time > at })
	c.events = append(c.events, CallEvent{})
	copy(c.events[i+1:], c.events[i:])
	c.events[i] = CallEvent{Time: at, State: state}
}
