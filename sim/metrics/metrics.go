// Package metrics exposes simulation checkpoints as Prometheus gauges.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/dialer-sim/dialer-sim/sim"
)

const namespace = "dialer"

// Collector mirrors the latest checkpoint of one run. Every Collector owns its
// registry, so several runs in one process never share series.
type Collector struct {
	Registry *prometheus.Registry

	calls  *prometheus.GaugeVec
	agents *prometheus.GaugeVec
	totals *prometheus.GaugeVec

	talkTimeRatio   prometheus.Gauge
	abandonmentRate prometheus.Gauge
	simulatedTime   prometheus.Gauge
	dialLevel       prometheus.Gauge
	checkpoints     prometheus.Counter
}

// NewCollector creates a Collector whose series carry run_id and strategy labels.
func NewCollector(runID, strategy string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID, "strategy": strategy}

	return &Collector{
		Registry: reg,
		calls: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "calls",
			Help:        "Live calls by state at the last checkpoint",
			ConstLabels: labels,
		}, []string{"state"}),
		agents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "agents",
			Help:        "Agents by status at the last checkpoint",
			ConstLabels: labels,
		}, []string{"status"}),
		totals: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "calls_total",
			Help:        "Running call totals by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		talkTimeRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "talk_time_ratio",
			Help:        "Fraction of agent time spent talking",
			ConstLabels: labels,
		}),
		abandonmentRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "abandonment_rate",
			Help:        "Abandoned calls as a fraction of answered calls",
			ConstLabels: labels,
		}),
		simulatedTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "simulated_time_seconds",
			Help:        "Simulated clock at the last checkpoint",
			ConstLabels: labels,
		}),
		dialLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "dial_level",
			Help:        "Calls launched per dial interval",
			ConstLabels: labels,
		}),
		checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "checkpoints_total",
			Help:        "Checkpoints observed",
			ConstLabels: labels,
		}),
	}
}

// Observe records a checkpoint. Suitable as an engine checkpoint hook.
func (c *Collector) Observe(cp sim.HistoryCheckpoint) {
	c.calls.WithLabelValues("created").Set(float64(cp.CreatedCalls))
	c.calls.WithLabelValues("ringing").Set(float64(cp.RingingCalls))
	c.calls.WithLabelValues("queued").Set(float64(cp.QueuedCalls))
	c.calls.WithLabelValues("talking").Set(float64(cp.TalkingCalls))
	c.calls.WithLabelValues("disconnected").Set(float64(cp.DisconnectedCalls))

	c.agents.WithLabelValues("free").Set(float64(cp.FreeAgents))
	c.agents.WithLabelValues("busy").Set(float64(cp.BusyAgents))
	c.agents.WithLabelValues("total").Set(float64(cp.TotalAgents))

	c.totals.WithLabelValues("all").Set(float64(cp.Calls))
	c.totals.WithLabelValues("answered").Set(float64(cp.Answered))
	c.totals.WithLabelValues("not_answered").Set(float64(cp.NotAnswered))
	c.totals.WithLabelValues("abandoned").Set(float64(cp.Abandoned))
	c.totals.WithLabelValues("talked").Set(float64(cp.Talked))

	c.talkTimeRatio.Set(cp.TalkTimeRatio)
	c.abandonmentRate.Set(cp.AbandonmentRate)
	c.simulatedTime.Set(float64(cp.Time) / 1000)
	c.checkpoints.Inc()
}

// SetDialLevel records the dial level in effect.
func (c *Collector) SetDialLevel(level float64) {
	c.dialLevel.Set(level)
}

// WriteTextfile writes every series in the text exposition format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Push sends every series to a Prometheus Pushgateway under job.
func (c *Collector) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(c.Registry).Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
