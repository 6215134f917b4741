// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"context"
	"io"
	"sync"
)

type popState int

const (
	popOK popState = iota
	popEmpty
	popClosed
)

// queue is an unbounded FIFO of payloads with one producer side and one
// consumer side, each of which can be closed independently.
//
// Closing the producer lets the consumer drain what is left and then see
// the queue as closed. Closing the consumer discards what is left and makes
// further pushes fail.
type queue struct {
	mu     sync.Mutex
	items  []Payload
	head   int
	signal chan struct{}

	producerGone bool
	consumerGone bool
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{})}
}

// wake must be called with q.mu held.
func (q *queue) wake() {
	close(q.signal)
	q.signal = make(chan struct{})
}

func (q *queue) push(p Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.producerGone {
		return ErrChannelClosed
	}
	if q.consumerGone {
		return errConsumerGone
	}
	q.items = append(q.items, p)
	q.wake()
	return nil
}

// popLocked must be called with q.mu held and a non-empty queue.
func (q *queue) popLocked() Payload {
	p := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return p
}

func (q *queue) tryPop() (Payload, popState) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case q.consumerGone:
		return nil, popClosed
	case q.head < len(q.items):
		return q.popLocked(), popOK
	case q.producerGone:
		return nil, popClosed
	default:
		return nil, popEmpty
	}
}

// pop blocks until a payload is available. It returns io.EOF once the
// producer is gone and the queue is drained.
func (q *queue) pop(ctx context.Context) (Payload, error) {
	for {
		q.mu.Lock()
		switch {
		case q.consumerGone:
			q.mu.Unlock()
			return nil, ErrChannelClosed
		case q.head < len(q.items):
			p := q.popLocked()
			q.mu.Unlock()
			return p, nil
		case q.producerGone:
			q.mu.Unlock()
			return nil, io.EOF
		}
		signal := q.signal
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-signal:
		}
	}
}

func (q *queue) closeProducer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.producerGone {
		q.producerGone = true
		q.wake()
	}
}

func (q *queue) closeConsumer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.consumerGone {
		q.consumerGone = true
		q.items = nil
		q.head = 0
		q.wake()
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
