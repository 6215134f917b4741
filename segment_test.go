package segmux

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkPayloadReconstructs(t *testing.T) {
	const L = MaxSegmentPayloadLength

	for _, n := range []int{0, 1, L - 1, L, L + 1, 3*L + 17} {
		p := make(Payload, n)
		for i := range p {
			p[i] = byte(i * 7)
		}

		chunks := chunkPayload(p, L)

		var joined []byte
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), L)
			require.NotEmpty(t, c)
			joined = append(joined, c...)
		}
		assert.Equal(t, (n+L-1)/L, len(chunks), "size %d", n)
		assert.True(t, bytes.Equal(p, joined), "size %d", n)
	}
}

func TestChunkPayloadSmallLimit(t *testing.T) {
	chunks := chunkPayload(Payload("hello-world"), 4)
	require.Len(t, chunks, 3)
	assert.Equal(t, "hell", string(chunks[0]))
	assert.Equal(t, "o-wo", string(chunks[1]))
	assert.Equal(t, "rld", string(chunks[2]))

	// appending to a chunk must not clobber the next one.
	_ = append(chunks[0], 'X')
	assert.Equal(t, "o-wo", string(chunks[1]))
}

func TestSegmentWire(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSegment(&buf, 0x01020304, 0x0a0b, []byte("ping")))

	assert.Equal(t, []byte{1, 2, 3, 4, 0x0a, 0x0b, 0, 4, 'p', 'i', 'n', 'g'}, buf.Bytes())

	seg, err := readSegment(&buf)
	require.NoError(t, err)
	assert.Equal(t, Segment{Protocol: 0x0a0b, Timestamp: 0x01020304, Payload: Payload("ping")}, seg)

	_, err = readSegment(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestSegmentWireErrors(t *testing.T) {
	var buf bytes.Buffer
	err := writeSegment(&buf, 0, 1, make([]byte, MaxSegmentPayloadLength+1))
	assert.ErrorIs(t, err, ErrSegmentTooLarge)
	assert.Zero(t, buf.Len())

	// header promises 4 bytes, only 2 follow.
	buf.Write([]byte{0, 0, 0, 0, 0, 1, 0, 4, 'p', 'i'})
	_, err = readSegment(&buf)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestTimestamp(t *testing.T) {
	start := time.Unix(100, 0)
	assert.Equal(t, uint32(0), timestamp(start, start))
	assert.Equal(t, uint32(1500), timestamp(start, start.Add(1500*time.Microsecond)))
	// wraps around at 32 bits.
	assert.Equal(t, uint32(5), timestamp(start, start.Add((1<<32+5)*time.Microsecond)))
}
