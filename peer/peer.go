// Copyright 2019 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package peer implements a synchronous request response model over one
// multiplexer channel.
//
// A mini-protocol usually alternates between the two ends of its channel:
// one side sends a request, the other one answers. Peer.Do plays the client
// part and Serve the server part. Requests and responses larger than the
// segment limit reach the remote side as several deliveries, so both ends
// should keep them within that limit.
package peer

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/someonegg/segmux"
)

// ErrPeerBroken is returned by Do once an earlier Do gave up waiting for a
// response; a late response would otherwise answer the wrong request.
var ErrPeerBroken = errors.New("peer: request response out of sync")

type Request = segmux.Payload
type Response = segmux.Payload
type Notify = segmux.Payload

// ResponseWriter sends the response of the request being processed.
type ResponseWriter func(resp Response) error

// Handler is the request processor.
//
// Handler should return as soon as possible, it is valid to read the
// request or use the ResponseWriter after returning.
type Handler interface {
	Process(ctx context.Context, r Request, w ResponseWriter)
}

// The HandlerFunc type is an adapter to allow the use of
// ordinary functions as request handlers.
type HandlerFunc func(ctx context.Context, r Request, w ResponseWriter)

// Process calls f(ctx, r, w).
func (f HandlerFunc) Process(ctx context.Context, r Request, w ResponseWriter) {
	f(ctx, r, w)
}

type Peer struct {
	ch *segmux.Channel

	locker sync.Mutex
	broken bool
}

func New(ch *segmux.Channel) *Peer {
	return &Peer{ch: ch}
}

func (p *Peer) Channel() *segmux.Channel {
	return p.ch
}

// Do will send the request and wait for a response. Concurrent calls are
// serialized.
func (p *Peer) Do(ctx context.Context, r Request) (Response, error) {
	p.locker.Lock()
	defer p.locker.Unlock()

	if p.broken {
		return nil, ErrPeerBroken
	}

	if err := p.ch.Send(r); err != nil {
		return nil, err
	}

	resp, err := p.ch.Recv(ctx)
	if err != nil && ctx.Err() != nil {
		p.broken = true
	}
	return resp, err
}

// Notify will send n without waiting for a response.
func (p *Peer) Notify(n Notify) error {
	return p.ch.Send(n)
}

// Serve hands every delivery of ch to h until the channel reaches EOF, which
// is not reported, or ctx is done.
func Serve(ctx context.Context, ch *segmux.Channel, h Handler) error {
	w := func(resp Response) error {
		return ch.Send(resp)
	}

	for {
		r, err := ch.Recv(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		h.Process(ctx, r, w)
	}
}
