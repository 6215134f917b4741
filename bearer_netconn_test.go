package segmux

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNetConn struct {
	bytes.Buffer
	closed bool
}

func (c *mockNetConn) Close() error {
	c.closed = true
	return nil
}

func (c *mockNetConn) LocalAddr() net.Addr {
	return &net.TCPAddr{}
}

func (c *mockNetConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{}
}

func (c *mockNetConn) SetDeadline(t time.Time) error {
	return nil
}

func (c *mockNetConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (c *mockNetConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func TestNetconnRead(t *testing.T) {
	c := &mockNetConn{}
	b := NewNetconnBearer(c)

	c.Write([]byte{0, 0, 0, 9, 0, 3, 0, 2, 'm', '1'})
	seg, err := b.ReadSegment()
	require.NoError(t, err)
	assert.Equal(t, Segment{Protocol: 3, Timestamp: 9, Payload: Payload("m1")}, seg)

	c.Write([]byte{0, 0, 0, 9, 0, 3, 0, 0})
	seg, err = b.ReadSegment()
	require.NoError(t, err)
	assert.Empty(t, seg.Payload)

	c.Write([]byte{0, 0, 0, 9, 0, 3, 0, 5, 'm'})
	_, err = b.ReadSegment()
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = b.ReadSegment()
	assert.Equal(t, io.EOF, err)
}

func TestNetconnWrite(t *testing.T) {
	c := &mockNetConn{}
	b := NewNetconnBearer(c)

	err := b.WriteSegment(b.start.Add(2*time.Millisecond), 0x8002, []byte("m1"))
	require.NoError(t, err)

	seg, err := b.ReadSegment()
	require.NoError(t, err)
	assert.Equal(t, Segment{Protocol: 0x8002, Timestamp: 2000, Payload: Payload("m1")}, seg)

	err = b.WriteSegment(time.Now(), 1, make([]byte, MaxSegmentPayloadLength+1))
	assert.ErrorIs(t, err, ErrSegmentTooLarge)
}

func TestNetconnClone(t *testing.T) {
	c := &mockNetConn{}
	b := NewNetconnBearer(c)

	cb, err := b.Clone()
	require.NoError(t, err)
	clone := cb.(*NetconnBearer)
	assert.Equal(t, b.start, clone.start)
	assert.Same(t, b.Conn(), clone.Conn())

	require.NoError(t, clone.WriteSegment(time.Now(), 1, []byte("via clone")))
	seg, err := b.ReadSegment()
	require.NoError(t, err)
	assert.Equal(t, "via clone", string(seg.Payload))

	clone.OnStop()
	assert.True(t, c.closed)
}

func TestNetconnMultiplexer(t *testing.T) {
	ca, cb := net.Pipe()

	ma, err := NetconnMultiplexer(ca, []ProtocolID{0, 1}, &Config{MaxSegmentPayload: 8})
	require.NoError(t, err)
	mb, err := NetconnMultiplexer(cb, []ProtocolID{0, 1}, &Config{MaxSegmentPayload: 8})
	require.NoError(t, err)

	a0, _ := ma.Claim(0)
	a1, _ := ma.Claim(1)
	b0, _ := mb.Claim(0)
	b1, _ := mb.Claim(1)

	long := "hello-world-that-is-longer-than-one-chunk"
	require.NoError(t, a0.Send(Payload("ping")))
	require.NoError(t, a1.Send(Payload(long)))

	assert.Equal(t, "ping", string(recvTimeout(t, b0)))

	var got []byte
	for len(got) < len(long) {
		got = append(got, recvTimeout(t, b1)...)
	}
	assert.Equal(t, long, string(got))

	require.NoError(t, b0.Send(Payload("pong")))
	assert.Equal(t, "pong", string(recvTimeout(t, a0)))

	// closing one end is a read failure on the other.
	ma.Stop()
	assert.NoError(t, ma.Join())

	err = mb.Join()
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)

	_, err = b1.Recv(context.Background())
	assert.Equal(t, io.EOF, err)
}
