package segmux

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	b := newMockBearer()
	m := newTestMux(t, b, []ProtocolID{1, 2}, nil)
	c1, _ := m.Claim(1)

	require.NoError(t, c1.Send(Payload("abc")))
	b.waitWritten(t, 1)
	b.feed(5, "unknown")
	b.feed(2, "queued")
	require.Eventually(t, func() bool {
		st := m.Statistics()
		return st.UnknownCount == 1 && st.Protocols[2].InboundQueued == 1
	}, timeout, tick)

	col := NewCollector(m, prometheus.Labels{"peer": "test"})

	assert.Equal(t, 2, testutil.CollectAndCount(col, "segmux_written_segments_total"))
	assert.Equal(t, 4, testutil.CollectAndCount(col, "segmux_queued_payloads"))

	expected := `
# HELP segmux_unknown_segments_total Segments read for protocols not being demuxed.
# TYPE segmux_unknown_segments_total counter
segmux_unknown_segments_total{peer="test"} 1
`
	err := testutil.CollectAndCompare(col, strings.NewReader(expected), "segmux_unknown_segments_total")
	assert.NoError(t, err)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(col))

	total := m.Statistics().Total()
	assert.Equal(t, int64(1), total.WrittenCount)
	assert.Equal(t, int64(3), total.WrittenBytes)
	assert.Equal(t, int64(1), total.SendCount)
	assert.Equal(t, 1, total.InboundQueued)
}
