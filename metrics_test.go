package stomp

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics("pushport")
	registry := prometheus.NewRegistry()
	require.NoError(t, m.Register(registry))

	// registering twice must fail
	assert.Error(t, m.Register(registry))
}

func TestMetrics_ReadLoop(t *testing.T) {
	m := NewMetrics("pushport")
	in := []byte("MESSAGE\n\nraw\x00MESSAGE\ncontent-length:0\n\n\x00MESSAGE\ncontent-length:3")

	messages, _, err := collect(t, newScriptedReader(in), MetricsOption(m))
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, float64(len(in)), testutil.ToFloat64(m.BytesRead))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FramesDecoded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecompressFallbacks))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.MessagesDelivered))
	assert.Equal(t, float64(len("MESSAGE\ncontent-length:3")), testutil.ToFloat64(m.BufferedBytes))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.bytesRead(10)
	m.frameDecoded(true)
	m.messageDelivered()
	m.buffered(3)
}
