package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Engine advances simulated time in fixed epochs, moving calls between state
// buckets and keeping the agent pool and running totals consistent.
//
// Within a tick, buckets are scanned in the order Created, Ringing, Queued,
// Talking over id snapshots taken when the tick begins, so a call that changes
// bucket mid-tick is next seen on the following tick.
type Engine struct {
	cfg      Config
	source   *CallRecordSource
	strategy DialerStrategy
	rng      *PartitionedRNG
	log      *logrus.Entry

	clock     int64
	shiftOver bool
	exhausted bool // the source returned no record on a launch attempt

	created      *CallBucket
	ringing      *CallBucket
	queued       *CallBucket
	talking      *CallBucket
	disconnected []*Call

	agents          AgentPool
	totals          Totals
	talkTimeRatio   float64
	abandonmentRate float64

	consumed []SeedCallRecord // every record pulled from the source, in order
	history  History
	hooks    []func(HistoryCheckpoint)
}

// EngineOption customizes an Engine at construction.
type EngineOption func(*Engine)

// WithStrategy replaces the strategy named in the config.
func WithStrategy(s DialerStrategy) EngineOption {
	return func(e *Engine) { e.strategy = s }
}

// WithLogger sends engine logs to the given entry instead of the standard logger.
func WithLogger(l *logrus.Entry) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithCheckpointHook registers fn to receive every checkpoint as it is taken.
func WithCheckpointHook(fn func(HistoryCheckpoint)) EngineOption {
	return func(e *Engine) { e.hooks = append(e.hooks, fn) }
}

// NewEngine validates cfg and builds an engine over source. Unless
// WithStrategy is given, the strategy is built from cfg.Dialer with its
// randomness seeded from cfg.Seed.
func NewEngine(cfg Config, source *CallRecordSource, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		source = NewCallRecordSource(nil, nil)
	}
	e := &Engine{
		cfg:     cfg,
		source:  source,
		rng:     NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		log:     logrus.NewEntry(logrus.StandardLogger()),
		created: NewCallBucket(),
		ringing: NewCallBucket(),
		queued:  NewCallBucket(),
		talking: NewCallBucket(),
		agents:  NewAgentPool(cfg.Agents),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategy == nil {
		e.strategy = NewDialerStrategy(cfg, e.rng)
	}
	return e, nil
}

// Run advances the simulation until it terminates. The first invariant
// violation aborts the run and is returned.
func (e *Engine) Run() error {
	e.log.Infof("[tick %07d] Starting %s dialer with %d agents", e.clock, e.strategy.Name(), e.agents.Total)
	for {
		e.clock += e.cfg.EpochMs
		if err := e.step(); err != nil {
			return fmt.Errorf("at %s: %w", FormatClock(e.clock), err)
		}
		if e.finished() {
			break
		}
	}
	e.log.Infof("[tick %07d] Finished. Time is %s", e.clock, FormatClock(e.clock))
	return nil
}

// step runs one tick.
func (e *Engine) step() error {
	if !e.shiftOver && e.clock >= e.cfg.ShiftDurationMs {
		if err := e.endShift(); err != nil {
			return err
		}
	}

	e.accrueAgentTime()
	if err := e.deliverEvents(); err != nil {
		return err
	}

	if !e.shiftOver {
		n, err := e.strategy.CallsToLaunch(e)
		if err != nil {
			return err
		}
		if err := e.launch(n); err != nil {
			return err
		}
	}

	if iv := e.cfg.ReportIntervalMs; iv > 0 && e.clock%iv == 0 {
		e.Report()
	}
	if iv := e.cfg.CheckpointIntervalMs; iv > 0 && e.clock%iv == 0 {
		e.checkpoint()
	}
	return nil
}

// finished reports whether the run loop should stop. Once the source is
// exhausted, or the shift is over, the run ends when no live call remains;
// with StopImmediately it ends as soon as the source is exhausted.
func (e *Engine) finished() bool {
	if e.exhausted && e.cfg.StopImmediately {
		return true
	}
	return (e.exhausted || e.shiftOver) && e.LiveCalls() == 0
}

func (e *Engine) accrueAgentTime() {
	e.totals.AgentTalkTime += int64(e.agents.Busy) * e.cfg.EpochMs
	e.totals.AgentIdleTime += int64(e.agents.Free) * e.cfg.EpochMs
	e.talkTimeRatio = ratio(float64(e.totals.AgentTalkTime), float64(e.totals.AgentTalkTime+e.totals.AgentIdleTime))
	e.abandonmentRate = ratio(float64(e.totals.Abandoned), float64(e.totals.Answered))
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// deliverEvents gives every live call at most one matured event. All bucket
// snapshots are taken before the first scan, so a call is only visited in the
// bucket it held when the tick began.
func (e *Engine) deliverEvents() error {
	buckets := []*CallBucket{e.created, e.ringing, e.queued, e.talking}
	snapshots := make([][]string, len(buckets))
	for i, b := range buckets {
		snapshots[i] = b.IDs()
	}
	for i, b := range buckets {
		for _, id := range snapshots[i] {
			c, ok := b.Get(id)
			if !ok {
				continue
			}
			ev, ok := c.NextEvent(e.clock)
			if !ok {
				continue
			}
			if err := e.handleEvent(c, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) handleEvent(c *Call, ev CallEvent) error {
	e.log.Debugf("[tick %07d] %s -> %s", e.clock, c, ev.State)
	switch ev.State {
	case StateRinging:
		return e.handleRinging(c)
	case StateAnswered:
		return e.handleAnswered(c)
	case StateDisconnected:
		return e.handleDisconnected(c)
	default:
		return &TransitionError{CallID: c.ID(), From: c.State(), To: ev.State}
	}
}

func (e *Engine) handleRinging(c *Call) error {
	if err := c.moveTo(StateRinging); err != nil {
		return err
	}
	e.created.Remove(c.ID())
	e.ringing.Add(c)
	return nil
}

// handleAnswered hands the call to a free agent, else queues it, else
// abandons it immediately.
func (e *Engine) handleAnswered(c *Call) error {
	if err := c.moveTo(StateAnswered); err != nil {
		return err
	}
	e.ringing.Remove(c.ID())
	e.totals.Answered++

	switch {
	case e.agents.Free > 0:
		return e.transferToAgent(c)
	case e.queued.Len() < e.cfg.QueueCapacity:
		if err := c.Queued(e.clock, e.source.NextPatienceSample()); err != nil {
			return err
		}
		e.queued.Add(c)
		return nil
	default:
		e.log.Debugf("[tick %07d] queue full, abandoning %s", e.clock, c.ID())
		if err := c.moveTo(StateDisconnected); err != nil {
			return err
		}
		e.totals.Abandoned++
		e.disconnected = append(e.disconnected, c)
		return nil
	}
}

func (e *Engine) transferToAgent(c *Call) error {
	if err := e.agents.MakeBusy(); err != nil {
		return fmt.Errorf("transferring call %s: %w", c.ID(), err)
	}
	if err := c.Talking(e.clock); err != nil {
		return err
	}
	e.talking.Add(c)
	e.totals.Talked++
	return nil
}

// handleDisconnected removes the call from whichever live bucket holds it and
// counts it against that bucket's outcome.
func (e *Engine) handleDisconnected(c *Call) error {
	id := c.ID()
	wasTalking := false
	switch {
	case e.created.Contains(id):
		e.created.Remove(id)
		e.totals.NotAnswered++
	case e.ringing.Contains(id):
		e.ringing.Remove(id)
		e.totals.NotAnswered++
	case e.queued.Contains(id):
		e.queued.Remove(id)
		e.totals.Abandoned++
	case e.talking.Contains(id):
		e.talking.Remove(id)
		wasTalking = true
	default:
		return &TransitionError{CallID: id, From: c.State(), To: StateDisconnected}
	}
	if err := c.moveTo(StateDisconnected); err != nil {
		return err
	}
	e.disconnected = append(e.disconnected, c)
	if wasTalking {
		return e.releaseAgent()
	}
	return nil
}

// releaseAgent frees an agent and immediately gives it the oldest queued call.
// With no queued call after the shift, the agent logs off instead.
func (e *Engine) releaseAgent() error {
	e.agents.Release()
	if next, ok := e.queued.PopOldest(); ok {
		return e.transferToAgent(next)
	}
	if e.shiftOver {
		e.agents.LogOffOne()
	}
	return nil
}

// endShift force-disconnects every call that has not been answered yet and
// logs off idle agents. Busy agents log off as their calls end.
func (e *Engine) endShift() error {
	e.shiftOver = true
	e.log.Infof("[tick %07d] Shift is over", e.clock)

	for _, b := range []*CallBucket{e.ringing, e.created} {
		for _, c := range b.Calls() {
			if err := e.handleDisconnected(c); err != nil {
				return err
			}
		}
	}
	n := e.agents.LogOffIdle()
	e.log.Infof("[tick %07d] %d idle agents logged off", e.clock, n)

	// With nobody left to serve the queue, callers that would wait forever
	// are abandoned.
	if e.agents.Busy == 0 {
		for _, c := range e.queued.Calls() {
			if err := e.handleDisconnected(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// launch dials up to n new calls from the source.
func (e *Engine) launch(n int) error {
	for i := 0; i < n; i++ {
		rec, ok := e.source.NextSeedRecord()
		if !ok {
			if !e.exhausted {
				e.log.Infof("[tick %07d] No more seed calls", e.clock)
			}
			e.exhausted = true
			return nil
		}
		e.consumed = append(e.consumed, rec)
		if e.isLive(rec.UniqueID) {
			e.log.Errorf("[tick %07d] skipping duplicate live call id %q", e.clock, rec.UniqueID)
			continue
		}

		c := NewCall(rec)
		if err := c.Dial(e.clock); err != nil {
			if !errors.Is(err, ErrUnknownOutcome) {
				return err
			}
			e.log.Errorf("[tick %07d] %v", e.clock, err)
		}
		e.created.Add(c)
		e.totals.Calls++
	}
	return nil
}

func (e *Engine) isLive(id string) bool {
	return e.created.Contains(id) || e.ringing.Contains(id) || e.queued.Contains(id) || e.talking.Contains(id)
}

func (e *Engine) checkpoint() {
	cp := e.Snapshot()
	e.history.Append(cp)
	for _, fn := range e.hooks {
		fn(cp)
	}
}

// Snapshot returns the current counters as a checkpoint without recording it.
func (e *Engine) Snapshot() HistoryCheckpoint {
	return HistoryCheckpoint{
		Time:              e.clock,
		CreatedCalls:      e.created.Len(),
		RingingCalls:      e.ringing.Len(),
		QueuedCalls:       e.queued.Len(),
		TalkingCalls:      e.talking.Len(),
		DisconnectedCalls: len(e.disconnected),
		FreeAgents:        e.agents.Free,
		BusyAgents:        e.agents.Busy,
		TotalAgents:       e.agents.Total,
		Totals:            e.totals,
		TalkTimeRatio:     e.talkTimeRatio,
		AbandonmentRate:   e.abandonmentRate,
	}
}

func (e *Engine) Now() int64 { return e.clock }
func (e *Engine) Config() Config { return e.cfg }
func (e *Engine) ShiftOver() bool { return e.shiftOver }
func (e *Engine) SourceExhausted() bool { return e.exhausted }
func (e *Engine) Agents() AgentPool { return e.agents }
func (e *Engine) NumCreated() int { return e.created.Len() }
func (e *Engine) NumRinging() int { return e.ringing.Len() }
func (e *Engine) NumQueued() int { return e.queued.Len() }
func (e *Engine) NumTalking() int { return e.talking.Len() }
func (e *Engine) NumDisconnected() int { return len(e.disconnected) }
func (e *Engine) Totals() Totals { return e.totals }
func (e *Engine) TalkTimeRatio() float64 { return e.talkTimeRatio }
func (e *Engine) AbandonmentRate() float64 { return e.abandonmentRate }
func (e *Engine) Strategy() DialerStrategy { return e.strategy }
func (e *Engine) History() *History { return &e.history }
func (e *Engine) Disconnected() []*Call { return e.disconnected }
func (e *Engine) ConsumedRecords() []SeedCallRecord { return e.consumed }
func (e *Engine) PatienceSamples() []QueuedCallSample {
	return e.source.PatienceSamples()
}

// Logger returns the entry the engine logs through.
func (e *Engine) Logger() *logrus.Entry { return e.log }

// LiveCalls counts calls in every bucket except Disconnected.
func (e *Engine) LiveCalls() int {
	return e.created.Len() + e.ringing.Len() + e.queued.Len() + e.talking.Len()
}
