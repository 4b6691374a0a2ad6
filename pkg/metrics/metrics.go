// Package metrics provides the orchestrator's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentinai"

// Recorder holds the orchestrator counters. A nil *Recorder records nothing.
type Recorder struct {
	requests     *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	memoryWrites *prometheus.CounterVec
	cooldown     prometheus.Gauge
}

// New registers the orchestrator metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests handled by the orchestrator by mode and status",
			},
			[]string{"mode", "status"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_invocations_total",
				Help:      "Tool adapter invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		memoryWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_writes_total",
				Help:      "Memory sink writes by status",
			},
			[]string{"status"},
		),
		cooldown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ratelimit_cooldown",
			Help:      "1 while the rate-limit guard is in COOLDOWN",
		}),
	}
}

// ObserveRequest counts a finished request.
func (r *Recorder) ObserveRequest(mode, status string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(mode, status).Inc()
}

// ObserveTool counts a tool invocation.
func (r *Recorder) ObserveTool(tool, outcome string) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveMemoryWrite counts a memory sink write.
func (r *Recorder) ObserveMemoryWrite(ok bool) {
	if r == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	r.memoryWrites.WithLabelValues(status).Inc()
}

// SetCooldown sets the cooldown gauge.
func (r *Recorder) SetCooldown(active bool) {
	if r == nil {
		return
	}
	if active {
		r.cooldown.Set(1)
		return
	}
	r.cooldown.Set(0)
}
