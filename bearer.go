// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import "time"

// Bearer is the transport shared by all mini-protocols of a Multiplexer.
//
// Setup clones the bearer twice: one clone is used only for writing, the
// other only for reading, each from its own goroutine. Any synchronization
// needed between clones over the same connection is the bearer's business.
type Bearer interface {
	// ReadSegment blocks until one whole segment is read.
	ReadSegment() (Segment, error)
	// WriteSegment writes one segment. clock is sampled once per egress
	// pass and is the source of the segment timestamp.
	WriteSegment(clock time.Time, protocol ProtocolID, chunk []byte) error
	// Clone returns an independent handle over the same connection.
	Clone() (Bearer, error)
}

// StopNotifier is implemented by bearers that want to know when the
// multiplexer stops, typically to close the connection and unblock a
// pending ReadSegment.
type StopNotifier interface {
	OnStop()
}

type StopNotifierFunc func()

func (f StopNotifierFunc) OnStop() {
	f()
}
