package sim

import (
	"fmt"
	"sort"
)

// HistoryCheckpoint is an immutable snapshot of the engine counters at one
// point in simulated time.
type HistoryCheckpoint struct {
	Time int64 `json:"current_time" yaml:"current_time"`

	CreatedCalls      int `json:"number_created_calls" yaml:"number_created_calls"`
	RingingCalls      int `json:"number_ringing_calls" yaml:"number_ringing_calls"`
	QueuedCalls       int `json:"number_queued_calls" yaml:"number_queued_calls"`
	TalkingCalls      int `json:"number_talking_calls" yaml:"number_talking_calls"`
	DisconnectedCalls int `json:"number_disconnected_calls" yaml:"number_disconnected_calls"`

	FreeAgents  int `json:"number_free_agents" yaml:"number_free_agents"`
	BusyAgents  int `json:"number_busy_agents" yaml:"number_busy_agents"`
	TotalAgents int `json:"number_agents" yaml:"number_agents"`

	Totals `yaml:",inline"`

	TalkTimeRatio   float64 `json:"current_talk_time" yaml:"current_talk_time"`
	AbandonmentRate float64 `json:"current_abandonment_rate" yaml:"current_abandonment_rate"`
}

// Totals are the running counters of a simulation.
//
//	Calls    == Answered + NotAnswered
//	Answered == Talked + Abandoned
type Totals struct {
	Answered    int `json:"total_number_answered_calls" yaml:"total_number_answered_calls"`
	NotAnswered int `json:"total_number_not_answered_calls" yaml:"total_number_not_answered_calls"`
	Abandoned   int `json:"total_number_abandon_calls" yaml:"total_number_abandon_calls"`
	Talked      int `json:"total_number_talking_calls" yaml:"total_number_talking_calls"`
	Calls       int `json:"total_number_calls" yaml:"total_number_calls"`

	AgentTalkTime int64 `json:"total_agent_talk_time" yaml:"total_agent_talk_time"` // agent-ms spent busy
	AgentIdleTime int64 `json:"total_agent_idle_time" yaml:"total_agent_idle_time"` // agent-ms spent free
}

// History is the time-ordered log of checkpoints taken during a run.
type History struct {
	checkpoints []HistoryCheckpoint
}

// Append adds a checkpoint. Checkpoints must arrive in strictly increasing time.
func (h *History) Append(cp HistoryCheckpoint) {
	if n := len(h.checkpoints); n > 0 && h.checkpoints[n-1].Time >= cp.Time {
		panic(fmt.Sprintf("History.Append: time went backwards: %d after %d", cp.Time, h.checkpoints[n-1].Time))
	}
	h.checkpoints = append(h.checkpoints, cp)
}

// At returns the checkpoint taken exactly at time t.
func (h *History) At(t int64) (HistoryCheckpoint, bool) {
	i := sort.Search(len(h.checkpoints), func(i int) bool { return h.checkpoints[i].Time >= t })
	if i < len(h.checkpoints) && h.checkpoints[i].Time == t {
		return h.checkpoints[i], true
	}
	return HistoryCheckpoint{}, false
}

// Last returns the most recent checkpoint.
func (h *History) Last() (HistoryCheckpoint, bool) {
	if len(h.checkpoints) == 0 {
		return HistoryCheckpoint{}, false
	}
	return h.checkpoints[len(h.checkpoints)-1], true
}

// Len returns the number of checkpoints.
func (h *History) Len() int {
	return len(h.checkpoints)
}

// Checkpoints returns a copy of the log in time order.
func (h *History) Checkpoints() []HistoryCheckpoint {
	return append([]HistoryCheckpoint(nil), h.checkpoints...)
}
