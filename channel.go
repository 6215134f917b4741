// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"context"
	"errors"
)

// Channel is the duplex handle of one mini-protocol. It is handed out once
// by Multiplexer.Claim and is safe for concurrent use.
type Channel struct {
	id   ProtocolID
	out  *queue
	in   *queue
	stat *protoStats
}

func (c *Channel) Protocol() ProtocolID {
	return c.id
}

// Send queues p for the egress loop. It never blocks. p must not be modified
// after the call.
//
// Payloads larger than the segment limit are written as several segments;
// the remote side receives them as separate deliveries.
func (c *Channel) Send(p Payload) error {
	err := c.out.push(p)
	if errors.Is(err, errConsumerGone) {
		return ErrMultiplexerStopped
	}
	if err == nil {
		c.stat.sent()
	}
	return err
}

// Recv returns the next inbound delivery, one per segment read from the
// bearer. It returns io.EOF after the ingress loop stopped and every queued
// delivery was consumed.
func (c *Channel) Recv(ctx context.Context) (Payload, error) {
	return c.in.pop(ctx)
}

// TryRecv returns the next inbound delivery if one is queued.
func (c *Channel) TryRecv() (Payload, bool) {
	p, st := c.in.tryPop()
	return p, st == popOK
}

// CloseSend tells the egress loop that no more payloads will be sent. Already
// queued payloads are still written.
func (c *Channel) CloseSend() {
	c.out.closeProducer()
}

// CloseRecv discards queued deliveries and stops the ingress loop from
// routing this protocol.
func (c *Channel) CloseRecv() {
	c.in.closeConsumer()
}

func (c *Channel) Close() {
	c.CloseSend()
	c.CloseRecv()
}
