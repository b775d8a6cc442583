package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/core/middleware"
	"github.com/miladsoleymani/qmux/metrics"
)

var _ middleware.MetricsCollector = (*metrics.Collector)(nil)

func TestCollector_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	require.NoError(t, c.Register())
	require.NoError(t, c.Register())

	// A second collector on the same registry tolerates the duplicates.
	require.NoError(t, metrics.NewCollector(reg).Register())
}

func TestCollector_SharesAlreadyRegisteredVecs(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.NewCollector(reg).Register())

	second := metrics.NewCollector(reg)
	require.NoError(t, second.Register())
	second.MessageProcessed("jobs", core.StatusAck, time.Millisecond, nil)
	second.MessageProcessed("jobs", "", time.Millisecond, errors.New("boom"))

	expected := `
# HELP qmux_messages_failed_total Messages whose processor returned an error, by queue.
# TYPE qmux_messages_failed_total counter
qmux_messages_failed_total{queue="jobs"} 1
# HELP qmux_messages_processed_total Messages settled by a processor, by queue and result status.
# TYPE qmux_messages_processed_total counter
qmux_messages_processed_total{queue="jobs",status="ack"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"qmux_messages_processed_total", "qmux_messages_failed_total"))
}

func TestCollector_MessageProcessed(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	require.NoError(t, c.Register())

	c.MessageProcessed("jobs", core.StatusAck, 10*time.Millisecond, nil)
	c.MessageProcessed("jobs", core.StatusAck, 20*time.Millisecond, nil)
	c.MessageProcessed("jobs", core.StatusReject, time.Millisecond, nil)
	c.MessageProcessed("jobs", "", time.Millisecond, errors.New("boom"))

	count, err := testutil.GatherAndCount(reg, "qmux_messages_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per status")

	count, err = testutil.GatherAndCount(reg, "qmux_messages_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "qmux_processing_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP qmux_messages_processed_total Messages settled by a processor, by queue and result status.
# TYPE qmux_messages_processed_total counter
qmux_messages_processed_total{queue="jobs",status="ack"} 2
qmux_messages_processed_total{queue="jobs",status="reject"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "qmux_messages_processed_total"))
}
