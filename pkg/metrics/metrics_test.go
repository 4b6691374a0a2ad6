package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ObserveRequest("fallback", "success")
	r.ObserveRequest("fallback", "success")
	r.ObserveTool("classify_ticket", "error")
	r.ObserveMemoryWrite(false)
	r.SetCooldown(true)

	assert.InDelta(t, 2, testutil.ToFloat64(r.requests.WithLabelValues("fallback", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.toolCalls.WithLabelValues("classify_ticket", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.memoryWrites.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.cooldown), 0)

	r.SetCooldown(false)
	assert.InDelta(t, 0, testutil.ToFloat64(r.cooldown), 0)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRequest("none", "error")
		r.ObserveTool("x", "success")
		r.ObserveMemoryWrite(true)
		r.SetCooldown(true)
	})
}
