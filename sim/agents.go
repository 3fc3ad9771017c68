package sim

import "fmt"

// AgentPool counts free and busy agents. Headcount only shrinks during a run,
// as agents log off after the shift ends.
type AgentPool struct {
	Free  int
	Busy  int
	Total int
}

// NewAgentPool returns a pool with every agent idle.
func NewAgentPool(agents int) AgentPool {
	return AgentPool{Free: agents, Total: agents}
}

// MakeBusy assigns one free agent to a call.
func (p *AgentPool) MakeBusy() error {
	if p.Free == 0 {
		return fmt.Errorf("%w (busy=%d, total=%d)", ErrNoFreeAgent, p.Busy, p.Total)
	}
	p.Free--
	p.Busy++
	return nil
}

// Release returns a busy agent to the free pool.
func (p *AgentPool) Release() {
	p.Busy--
	p.Free++
}

// LogOffOne removes one free agent from the pool for good.
func (p *AgentPool) LogOffOne() {
	p.Free--
	p.Total--
}

// LogOffIdle removes every free agent and returns how many left.
func (p *AgentPool) LogOffIdle() int {
	n := p.Free
	p.Total -= n
	p.Free = 0
	return n
}

func (p AgentPool) String() string {
	return fmt.Sprintf("AgentPool: (Free: %d, Busy: %d, Total: %d)", p.Free, p.Busy, p.Total)
}
