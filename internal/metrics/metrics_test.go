package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LaunchesScheduled.Inc()
	m.LaunchesSeeded.Add(3)
	m.RequestDurationSeconds.WithLabelValues("GET", "/v1/launches", "200").Observe(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LaunchesScheduled))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LaunchesSeeded))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LaunchesAborted))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
