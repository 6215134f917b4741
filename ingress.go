// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"context"

	"go.uber.org/zap"
)

// ingress routes segments read from the bearer to the inbound queue of
// their protocol. It is owned by a single goroutine.
type ingress struct {
	bearer Bearer
	queues map[ProtocolID]*queue

	log  *zap.Logger
	stat *stats
}

func (in *ingress) run(ctx context.Context) error {
	defer in.release()

	for {
		seg, err := in.bearer.ReadSegment()
		if err != nil {
			return &TransportError{Op: "read", Err: err}
		}

		in.route(seg)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// route delivers seg as is; segments are never reassembled.
func (in *ingress) route(seg Segment) {
	id := seg.Protocol
	q, ok := in.queues[id]
	if !ok {
		atomic64Inc(&in.stat.unknownCount)
		in.log.Warn("received segment for protocol not being demuxed",
			zap.Uint16("protocol", uint16(id)), zap.Int("size", len(seg.Payload)))
		return
	}

	in.stat.protocols[id].read(len(seg.Payload))

	if err := q.push(seg.Payload); err != nil {
		delete(in.queues, id)
		atomic64Inc(&in.stat.droppedCount)
		in.log.Info("protocol consumer gone, removing protocol from ingress",
			zap.Uint16("protocol", uint16(id)))
		return
	}

	if ce := in.log.Check(zap.DebugLevel, "segment delivered"); ce != nil {
		ce.Write(zap.Uint16("protocol", uint16(id)), zap.Int("size", len(seg.Payload)))
	}
}

// release lets the remaining channels drain and then see io.EOF.
func (in *ingress) release() {
	for id, q := range in.queues {
		q.closeProducer()
		delete(in.queues, id)
	}
}
