// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotFound is returned by Claim for a protocol that was never
	// registered or whose channel was already claimed.
	ErrChannelNotFound = errors.New("segmux: channel not found")
	// ErrChannelClosed is returned when using a side of a channel that the
	// owner already closed.
	ErrChannelClosed = errors.New("segmux: channel closed")
	// ErrMultiplexerStopped is returned by Send once the egress loop is gone.
	ErrMultiplexerStopped = errors.New("segmux: multiplexer stopped")
	// ErrSegmentTooLarge is returned by bearers asked to write a chunk larger
	// than MaxSegmentPayloadLength.
	ErrSegmentTooLarge = errors.New("segmux: segment payload too large")
	// ErrInvalidSegmentLimit is returned by Setup for a limit outside
	// 1..MaxSegmentPayloadLength.
	ErrInvalidSegmentLimit = errors.New("segmux: invalid segment payload limit")

	errConsumerGone = errors.New("segmux: consumer gone")
)

// TransportError is the fatal termination cause of a worker: the bearer
// failed to read or write a segment.
type TransportError struct {
	// Op is "read" or "write".
	Op string
	// Protocol is the id being written, zero for reads.
	Protocol ProtocolID
	Err      error
}

func (e *TransportError) Error() string {
	if e.Op == "write" {
		return fmt.Sprintf("segmux: bearer write (protocol %d): %v", e.Protocol, e.Err)
	}
	return fmt.Sprintf("segmux: bearer %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
