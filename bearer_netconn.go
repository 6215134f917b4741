// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"bufio"
	"net"
	"time"
)

// NetconnBearer converts a net.Conn to a Bearer.
//
// Every clone has its own read and write buffers, so a clone must be used
// either for reading or for writing, never both from two goroutines.
// Timestamps are microseconds since NewNetconnBearer.
type NetconnBearer struct {
	conn  net.Conn
	r     *bufio.Reader
	w     *bufio.Writer
	start time.Time
}

func NewNetconnBearer(conn net.Conn) *NetconnBearer {
	return &NetconnBearer{
		conn:  conn,
		r:     bufio.NewReader(conn),
		w:     bufio.NewWriter(conn),
		start: time.Now(),
	}
}

func (b *NetconnBearer) ReadSegment() (Segment, error) {
	return readSegment(b.r)
}

func (b *NetconnBearer) WriteSegment(clock time.Time, protocol ProtocolID, chunk []byte) error {
	if err := writeSegment(b.w, timestamp(b.start, clock), protocol, chunk); err != nil {
		return err
	}
	return b.w.Flush()
}

func (b *NetconnBearer) Clone() (Bearer, error) {
	return &NetconnBearer{
		conn:  b.conn,
		r:     bufio.NewReader(b.conn),
		w:     bufio.NewWriter(b.conn),
		start: b.start,
	}, nil
}

func (b *NetconnBearer) OnStop() {
	b.conn.Close()
}

// Conn returns the underlying connection.
func (b *NetconnBearer) Conn() net.Conn {
	return b.conn
}

// NetconnMultiplexer sets up a multiplexer over a net.Conn.
func NetconnMultiplexer(conn net.Conn, protocols []ProtocolID, cfg *Config) (*Multiplexer, error) {
	return Setup(NewNetconnBearer(conn), protocols, cfg)
}
