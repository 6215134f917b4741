// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// egress drains the outbound queues of every registered protocol into the
// write side of the bearer. It is owned by a single goroutine.
type egress struct {
	bearer Bearer
	queues map[ProtocolID]*queue
	order  []ProtocolID

	limit int
	idle  time.Duration
	clock clock.Clock

	log  *zap.Logger
	stat *stats
}

// run keeps scanning until ctx is done or the bearer fails. An empty queue
// set does not end the loop, it only keeps it idle.
func (e *egress) run(ctx context.Context) error {
	defer e.release()

	for {
		idle, err := e.pass(e.clock.Now())
		if err != nil {
			return err
		}

		if !idle {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		t := e.clock.Timer(e.idle)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// pass visits every remaining protocol once and forwards at most one
// payload for each. It reports idle when any queue was empty or no protocol
// is left.
func (e *egress) pass(now time.Time) (idle bool, err error) {
	if len(e.order) == 0 {
		return true, nil
	}

	live := e.order[:0]
	for i, id := range e.order {
		p, st := e.queues[id].tryPop()
		switch st {
		case popOK:
			if err = e.forward(now, id, p); err != nil {
				e.order = append(live, e.order[i:]...)
				return false, err
			}
		case popEmpty:
			idle = true
		case popClosed:
			delete(e.queues, id)
			e.log.Info("protocol handle disconnected", zap.Uint16("protocol", uint16(id)))
			continue
		}
		live = append(live, id)
	}
	e.order = live

	return idle || len(e.order) == 0, nil
}

func (e *egress) forward(now time.Time, id ProtocolID, p Payload) error {
	ps := e.stat.protocols[id]
	for _, chunk := range chunkPayload(p, e.limit) {
		if err := e.bearer.WriteSegment(now, id, chunk); err != nil {
			return &TransportError{Op: "write", Protocol: id, Err: err}
		}
		ps.wrote(len(chunk))
	}

	if ce := e.log.Check(zap.DebugLevel, "payload written"); ce != nil {
		ce.Write(zap.Uint16("protocol", uint16(id)), zap.Int("size", len(p)))
	}
	return nil
}

// release makes further sends on the remaining channels fail.
func (e *egress) release() {
	for id, q := range e.queues {
		q.closeConsumer()
		delete(e.queues, id)
	}
	e.order = nil
}
