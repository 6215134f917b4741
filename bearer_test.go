package segmux

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	timeout = time.Second
	tick    = time.Millisecond
)

type written struct {
	clock time.Time
	seg   Segment
}

// mockBearer is an in-memory bearer. Clones share the same state. When peer
// is set, written segments are also fed to the peer's reads.
type mockBearer struct {
	mu     sync.Mutex
	writes []written
	werr   error
	wmax   int
	clones int
	cerr   error
	peer   *mockBearer

	reads    chan Segment
	stopped  chan struct{}
	stopOnce sync.Once
}

func newMockBearer() *mockBearer {
	return &mockBearer{
		reads:   make(chan Segment, 1024),
		stopped: make(chan struct{}),
	}
}

func newMockBearerPair() (*mockBearer, *mockBearer) {
	a, b := newMockBearer(), newMockBearer()
	a.peer, b.peer = b, a
	return a, b
}

func (b *mockBearer) ReadSegment() (Segment, error) {
	select {
	case seg, ok := <-b.reads:
		if !ok {
			return Segment{}, io.EOF
		}
		return seg, nil
	case <-b.stopped:
		return Segment{}, io.ErrClosedPipe
	}
}

func (b *mockBearer) WriteSegment(clock time.Time, protocol ProtocolID, chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.werr != nil || (b.wmax > 0 && len(b.writes) >= b.wmax) {
		if b.werr != nil {
			return b.werr
		}
		return io.ErrClosedPipe
	}

	seg := Segment{Protocol: protocol, Payload: append(Payload(nil), chunk...)}
	b.writes = append(b.writes, written{clock, seg})
	if b.peer != nil {
		b.peer.reads <- seg
	}
	return nil
}

func (b *mockBearer) Clone() (Bearer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cerr != nil {
		return nil, b.cerr
	}
	b.clones++
	return b, nil
}

func (b *mockBearer) OnStop() {
	b.stopOnce.Do(func() { close(b.stopped) })
}

func (b *mockBearer) feed(id ProtocolID, p string) {
	b.reads <- Segment{Protocol: id, Payload: Payload(p)}
}

func (b *mockBearer) segments() []Segment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Segment, 0, len(b.writes))
	for _, w := range b.writes {
		out = append(out, w.seg)
	}
	return out
}

func (b *mockBearer) waitWritten(t *testing.T, n int) []Segment {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(b.segments()) >= n
	}, timeout, tick)
	return b.segments()
}

// newTestMux sets up a multiplexer that is stopped and joined when the test
// ends.
func newTestMux(t *testing.T, b Bearer, ids []ProtocolID, cfg *Config) *Multiplexer {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	if cfg.IdleInterval == 0 {
		cfg.IdleInterval = time.Millisecond
	}

	m, err := Setup(b, ids, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Stop()
		m.Join()
	})
	return m
}
