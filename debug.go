// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// SegmentDump is a debugging helper, it implements the Bearer interface
// and provides segment dump function.
//
// The dump format is:
//
//	R|W:Protocol:PayloadSize\nPayload\n\n
//
// Clones share Dump and serialize their output.
type SegmentDump struct {
	B    Bearer
	Dump io.Writer

	// Filter can be nil. If nil, dump all segments.
	Filter func(protocol ProtocolID, p []byte, read bool) bool

	once sync.Once
	mu   *sync.Mutex
}

// lock returns the mutex shared by d and its clones.
func (d *SegmentDump) lock() *sync.Mutex {
	d.once.Do(func() {
		if d.mu == nil {
			d.mu = &sync.Mutex{}
		}
	})
	return d.mu
}

func (d *SegmentDump) needDump(protocol ProtocolID, p []byte, read bool) bool {
	if d.Filter != nil {
		return d.Filter(protocol, p, read)
	}
	return true
}

func (d *SegmentDump) dump(dir string, protocol ProtocolID, p []byte) {
	mu := d.lock()
	mu.Lock()
	defer mu.Unlock()

	fmt.Fprintf(d.Dump, "%s:%v:%v\n", dir, protocol, len(p))
	d.Dump.Write(p)
	fmt.Fprintf(d.Dump, "\n\n")
}

func (d *SegmentDump) ReadSegment() (seg Segment, err error) {
	seg, err = d.B.ReadSegment()
	if err != nil {
		return
	}

	if d.needDump(seg.Protocol, seg.Payload, true) {
		d.dump("R", seg.Protocol, seg.Payload)
	}
	return
}

func (d *SegmentDump) WriteSegment(clock time.Time, protocol ProtocolID, chunk []byte) (err error) {
	err = d.B.WriteSegment(clock, protocol, chunk)
	if err != nil {
		return
	}

	if d.needDump(protocol, chunk, false) {
		d.dump("W", protocol, chunk)
	}
	return
}

func (d *SegmentDump) Clone() (Bearer, error) {
	b, err := d.B.Clone()
	if err != nil {
		return nil, err
	}
	return &SegmentDump{B: b, Dump: d.Dump, Filter: d.Filter, mu: d.lock()}, nil
}

func (d *SegmentDump) OnStop() {
	if sn, ok := d.B.(StopNotifier); ok {
		sn.OnStop()
	}
}
