// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

var (
	errWebsocketMessageType   = errors.New("websocket bearer: need binary message")
	errWebsocketSegmentFormat = errors.New("websocket bearer: wrong segment format")
)

// WebsocketReader interface, see https://godoc.org/github.com/gorilla/websocket/#Conn.NextReader
type WebsocketReader interface {
	NextReader() (messageType int, r io.Reader, err error)
}

// WebsocketWriter interface, see https://godoc.org/github.com/gorilla/websocket/#Conn.NextWriter
type WebsocketWriter interface {
	NextWriter(messageType int) (io.WriteCloser, error)
}

// WebsocketConn interface, satisfied by *websocket.Conn.
type WebsocketConn interface {
	WebsocketReader
	WebsocketWriter
	io.Closer
}

var _ WebsocketConn = (*websocket.Conn)(nil)

// WebsocketBearer converts a WebsocketConn to a Bearer.
//
// Each segment travels as one binary message holding the segment header
// followed by the payload. A websocket connection supports one concurrent
// reader and one concurrent writer, which is exactly how the multiplexer
// uses the two clones.
type WebsocketBearer struct {
	c     WebsocketConn
	start time.Time
}

func NewWebsocketBearer(c WebsocketConn) *WebsocketBearer {
	return &WebsocketBearer{c: c, start: time.Now()}
}

func (b *WebsocketBearer) ReadSegment() (Segment, error) {
	mt, r, err := b.c.NextReader()
	if err != nil {
		return Segment{}, err
	}
	if mt != websocket.BinaryMessage {
		return Segment{}, errWebsocketMessageType
	}

	p, err := io.ReadAll(r)
	if err != nil {
		return Segment{}, err
	}

	seg, err := readSegment(bytes.NewReader(p))
	if err != nil {
		return Segment{}, errWebsocketSegmentFormat
	}
	if len(p) != SegmentHeaderLength+len(seg.Payload) {
		return Segment{}, errWebsocketSegmentFormat
	}
	return seg, nil
}

func (b *WebsocketBearer) WriteSegment(clock time.Time, protocol ProtocolID, chunk []byte) error {
	// checked before NextWriter, an abandoned writer would corrupt the stream.
	if len(chunk) > MaxSegmentPayloadLength {
		return ErrSegmentTooLarge
	}

	wc, err := b.c.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}

	if err = writeSegment(wc, timestamp(b.start, clock), protocol, chunk); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func (b *WebsocketBearer) Clone() (Bearer, error) {
	return &WebsocketBearer{c: b.c, start: b.start}, nil
}

func (b *WebsocketBearer) OnStop() {
	b.c.Close()
}
