// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"encoding/binary"
	"io"
	"time"
)

// MaxSegmentPayloadLength is the largest chunk a single segment can carry.
const MaxSegmentPayloadLength = 65535

// SegmentHeaderLength is the size of the wire header used by the bearers in
// this package.
//
// In the transport layer, segment's layout is:
//
//	Timestamp(4-bytes, big-endian)Protocol(2-bytes)Length(2-bytes)Payload
const SegmentHeaderLength = 8

// ProtocolID identifies a mini-protocol.
type ProtocolID uint16

// Payload is a unit of application data.
type Payload = []byte

// Segment is what a Bearer reads: one framed chunk of a payload.
type Segment struct {
	Protocol  ProtocolID
	Timestamp uint32
	Payload   Payload
}

// chunkPayload splits p into consecutive chunks of at most limit bytes.
// An empty payload has no chunks.
func chunkPayload(p Payload, limit int) [][]byte {
	if len(p) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(p)+limit-1)/limit)
	for len(p) > limit {
		chunks = append(chunks, p[:limit:limit])
		p = p[limit:]
	}
	return append(chunks, p)
}

// timestamp is the number of microseconds elapsed since start, truncated to
// 32 bits.
func timestamp(start, clock time.Time) uint32 {
	return uint32(clock.Sub(start) / time.Microsecond)
}

func putSegmentHeader(b []byte, ts uint32, id ProtocolID, n int) {
	binary.BigEndian.PutUint32(b[0:4], ts)
	binary.BigEndian.PutUint16(b[4:6], uint16(id))
	binary.BigEndian.PutUint16(b[6:8], uint16(n))
}

func readSegment(r io.Reader) (Segment, error) {
	var h [SegmentHeaderLength]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Segment{}, err
	}
	seg := Segment{
		Timestamp: binary.BigEndian.Uint32(h[0:4]),
		Protocol:  ProtocolID(binary.BigEndian.Uint16(h[4:6])),
	}
	n := int(binary.BigEndian.Uint16(h[6:8]))
	seg.Payload = make(Payload, n)
	if _, err := io.ReadFull(r, seg.Payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Segment{}, err
	}
	return seg, nil
}

func writeSegment(w io.Writer, ts uint32, id ProtocolID, chunk []byte) error {
	if len(chunk) > MaxSegmentPayloadLength {
		return ErrSegmentTooLarge
	}
	var h [SegmentHeaderLength]byte
	putSegmentHeader(h[:], ts, id, len(chunk))
	if _, err := w.Write(h[:]); err != nil {
		return err
	}
	_, err := w.Write(chunk)
	return err
}
