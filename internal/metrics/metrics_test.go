package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveStep("c", "compile", "ok", 120*time.Millisecond)
	r.ObserveStep("c", "compile", "failed", 10*time.Millisecond)
	r.ObserveStep("c", "execute", "ok", time.Second)
	r.ObserveRun("c", "done")
	r.ObserveRun("c", "done")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepsTotal.WithLabelValues("c", "compile", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepsTotal.WithLabelValues("c", "compile", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("c", "done")))

	expected := `
# HELP eo_runs_total Total number of eo runs by language and final status
# TYPE eo_runs_total counter
eo_runs_total{language="c",status="done"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eo_runs_total"))

	n, err := testutil.GatherAndCount(reg, "eo_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusRecorder(prometheus.NewRegistry())
		NewPrometheusRecorder(prometheus.NewRegistry())
	})
}

func TestNop(t *testing.T) {
	r := Nop()
	r.ObserveStep("asm", "link", "ok", time.Millisecond)
	r.ObserveRun("asm", "done")
}
