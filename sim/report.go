package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// FormatClock renders simulated milliseconds as HH:MM:SS.mmm.
func FormatClock(ms int64) string {
	h := ms / OneHour
	m := ms % OneHour / OneMinute
	s := ms % OneMinute / OneSecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%OneSecond)
}

// Fields returns the checkpoint as structured log fields.
func (cp HistoryCheckpoint) Fields() logrus.Fields {
	return logrus.Fields{
		"time":             FormatClock(cp.Time),
		"created":          cp.CreatedCalls,
		"ringing":          cp.RingingCalls,
		"queued":           cp.QueuedCalls,
		"talking":          cp.TalkingCalls,
		"disconnected":     cp.DisconnectedCalls,
		"free_agents":      cp.FreeAgents,
		"busy_agents":      cp.BusyAgents,
		"agents":           cp.TotalAgents,
		"answered":         cp.Answered,
		"not_answered":     cp.NotAnswered,
		"abandoned":        cp.Abandoned,
		"talked":           cp.Talked,
		"calls":            cp.Calls,
		"talk_time":        fmt.Sprintf("%.4f", cp.TalkTimeRatio),
		"abandonment_rate": fmt.Sprintf("%.4f", cp.AbandonmentRate),
	}
}

// Report logs the current counters.
func (e *Engine) Report() {
	e.log.WithFields(e.Snapshot().Fields()).Info("report")
}

// EndReport logs the final abandonment rate and agent talk time.
func (e *Engine) EndReport() {
	talkMinutesPerHour := e.talkTimeRatio * 60
	e.log.Infof("Abandonment rate: %.2f%%", e.abandonmentRate*100)
	e.log.Infof("Talk time: %.2f%% (%.1f min/hour per agent)", e.talkTimeRatio*100, talkMinutesPerHour)
	e.log.Infof("Calls: %d total, %d answered, %d not answered, %d abandoned, %d talked",
		e.totals.Calls, e.totals.Answered, e.totals.NotAnswered, e.totals.Abandoned, e.totals.Talked)
}
