// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import "sync/atomic"

// ProtocolStatistics are the counters of one mini-protocol.
type ProtocolStatistics struct {
	// from Bearer
	ReadCount int64
	ReadBytes int64

	// to Bearer
	WrittenCount int64
	WrittenBytes int64

	// Channel.Send calls
	SendCount int64

	// payloads waiting in the queues
	OutboundQueued int
	InboundQueued  int
}

type Statistics struct {
	Protocols map[ProtocolID]ProtocolStatistics

	// segments for protocols not being demuxed
	UnknownCount int64
	// segments whose consumer was gone
	DroppedCount int64
}

type protoStats struct {
	readCount    int64
	readBytes    int64
	writtenCount int64
	writtenBytes int64
	sendCount    int64

	out *queue
	in  *queue
}

func (s *protoStats) read(n int) {
	atomic.AddInt64(&s.readCount, 1)
	atomic.AddInt64(&s.readBytes, int64(n))
}

func (s *protoStats) wrote(n int) {
	atomic.AddInt64(&s.writtenCount, 1)
	atomic.AddInt64(&s.writtenBytes, int64(n))
}

func (s *protoStats) sent() {
	atomic.AddInt64(&s.sendCount, 1)
}

func (s *protoStats) snapshot() ProtocolStatistics {
	return ProtocolStatistics{
		ReadCount:      atomic.LoadInt64(&s.readCount),
		ReadBytes:      atomic.LoadInt64(&s.readBytes),
		WrittenCount:   atomic.LoadInt64(&s.writtenCount),
		WrittenBytes:   atomic.LoadInt64(&s.writtenBytes),
		SendCount:      atomic.LoadInt64(&s.sendCount),
		OutboundQueued: s.out.len(),
		InboundQueued:  s.in.len(),
	}
}

// stats is built once by Setup; the protocols map is read-only afterwards.
type stats struct {
	protocols    map[ProtocolID]*protoStats
	unknownCount int64
	droppedCount int64
}

func newStats() *stats {
	return &stats{protocols: make(map[ProtocolID]*protoStats)}
}

func (s *stats) snapshot() Statistics {
	st := Statistics{
		Protocols:    make(map[ProtocolID]ProtocolStatistics, len(s.protocols)),
		UnknownCount: atomic.LoadInt64(&s.unknownCount),
		DroppedCount: atomic.LoadInt64(&s.droppedCount),
	}
	for id, ps := range s.protocols {
		st.Protocols[id] = ps.snapshot()
	}
	return st
}

// Total sums the per-protocol counters.
func (s Statistics) Total() ProtocolStatistics {
	var t ProtocolStatistics
	for _, ps := range s.Protocols {
		t.ReadCount += ps.ReadCount
		t.ReadBytes += ps.ReadBytes
		t.WrittenCount += ps.WrittenCount
		t.WrittenBytes += ps.WrittenBytes
		t.SendCount += ps.SendCount
		t.OutboundQueued += ps.OutboundQueued
		t.InboundQueued += ps.InboundQueued
	}
	return t
}

func atomic64Inc(v *int64) {
	atomic.AddInt64(v, 1)
}
