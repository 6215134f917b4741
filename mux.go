// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/someonegg/gox/syncx"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Multiplexer shares one Bearer between several mini-protocols. It has two
// working loops: egress writes queued payloads of every protocol to the
// bearer, ingress routes segments read from the bearer to their protocol.
//
// Multiplexer supports concurrently access.
type Multiplexer struct {
	id  string
	log *zap.Logger

	quitF    context.CancelFunc
	stopping int32
	stopD    syncx.DoneChan
	sn       StopNotifier

	locker   sync.Mutex
	channels map[ProtocolID]*Channel

	// egress
	eerr error
	eD   syncx.DoneChan
	// ingress
	ierr error
	iD   syncx.DoneChan

	stat *stats
}

// Setup registers protocols, clones the bearer into a write side and a read
// side and starts both working loops.
//
// Every protocol gets one Channel to be claimed with Claim. Protocol ids are
// expected to be distinct; a repeated id replaces the earlier registration.
//
// If bearer implements the StopNotifier interface, it will be called when
// the working loops are exiting.
func Setup(bearer Bearer, protocols []ProtocolID, cfg *Config) (*Multiplexer, error) {
	c, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	wb, err := bearer.Clone()
	if err != nil {
		return nil, fmt.Errorf("segmux: clone write bearer: %w", err)
	}
	rb, err := bearer.Clone()
	if err != nil {
		return nil, fmt.Errorf("segmux: clone read bearer: %w", err)
	}

	id := xid.New().String()
	sn, _ := bearer.(StopNotifier)
	m := &Multiplexer{
		id:       id,
		log:      c.Logger.With(zap.String("mux", id)),
		stopD:    syncx.NewDoneChan(),
		sn:       sn,
		channels: make(map[ProtocolID]*Channel, len(protocols)),
		eD:       syncx.NewDoneChan(),
		iD:       syncx.NewDoneChan(),
		stat:     newStats(),
	}

	eg := &egress{
		bearer: wb,
		queues: make(map[ProtocolID]*queue, len(protocols)),
		limit:  c.MaxSegmentPayload,
		idle:   c.IdleInterval,
		clock:  c.Clock,
		log:    m.log.Named("egress"),
		stat:   m.stat,
	}
	in := &ingress{
		bearer: rb,
		queues: make(map[ProtocolID]*queue, len(protocols)),
		log:    m.log.Named("ingress"),
		stat:   m.stat,
	}

	for _, pid := range protocols {
		out, inq := newQueue(), newQueue()
		ps := &protoStats{out: out, in: inq}
		m.stat.protocols[pid] = ps
		m.channels[pid] = &Channel{id: pid, out: out, in: inq, stat: ps}
		eg.queues[pid] = out
		in.queues[pid] = inq
	}
	for pid := range eg.queues {
		eg.order = append(eg.order, pid)
	}
	slices.Sort(eg.order)
	n := len(eg.order)

	var ctx context.Context
	ctx, m.quitF = context.WithCancel(context.Background())

	go m.working(ctx, "egress", eg.run, &m.eerr, m.eD)
	go m.working(ctx, "ingress", in.run, &m.ierr, m.iD)
	go m.monitor(ctx)

	m.log.Info("multiplexer started", zap.Int("protocols", n))
	return m, nil
}

func (m *Multiplexer) working(ctx context.Context, name string,
	loop func(context.Context) error, errp *error, done syncx.DoneChan) {

	defer done.SetDone()

	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = loop(ctx) })
	if r := pc.Recovered(); r != nil {
		m.log.Error("working loop panic", zap.String("loop", name),
			zap.Any("panic", r.Value), zap.ByteString("stack", r.Stack))
		err = r.AsError()
	}

	// errors caused by stopping are not reported.
	if err == nil || atomic.LoadInt32(&m.stopping) == 1 {
		return
	}
	m.log.Error("working loop terminated", zap.String("loop", name), zap.Error(err))
	*errp = err
}

func (m *Multiplexer) monitor(ctx context.Context) {
	defer m.stopD.SetDone()

	select {
	case <-ctx.Done():
	case <-m.eD:
	case <-m.iD:
	}

	// if ending from error.
	atomic.StoreInt32(&m.stopping, 1)
	m.quitF()

	if m.sn != nil {
		m.sn.OnStop()
	}

	<-m.eD
	<-m.iD

	m.log.Info("multiplexer stopped", zap.Error(multierr.Combine(m.eerr, m.ierr)))
}

// ID identifies the multiplexer in logs.
func (m *Multiplexer) ID() string {
	return m.id
}

// Claim hands out the channel of protocol id. Each channel can be claimed
// only once.
func (m *Multiplexer) Claim(id ProtocolID) (*Channel, error) {
	m.locker.Lock()
	defer m.locker.Unlock()

	ch, ok := m.channels[id]
	if !ok {
		return nil, fmt.Errorf("%w: protocol %d", ErrChannelNotFound, id)
	}
	delete(m.channels, id)
	return ch, nil
}

// Stop requests to stop the multiplexer, the working loops will stop
// asynchronously.
func (m *Multiplexer) Stop() {
	atomic.StoreInt32(&m.stopping, 1)
	m.quitF()
}

// StopD returns a done channel, it will be signaled when both working loops
// are stopped.
func (m *Multiplexer) StopD() syncx.DoneChanR {
	return m.stopD.R()
}

func (m *Multiplexer) Stopped() bool {
	return m.stopD.R().Done()
}

// Join waits for both working loops and returns why they terminated, nil
// when the multiplexer was stopped with Stop.
//
// Without Stop or a transport failure Join blocks forever: the egress loop
// keeps running even after every protocol disconnected.
func (m *Multiplexer) Join() error {
	<-m.stopD
	return m.Err()
}

// Err returns the fatal error of the working loops, a *TransportError in
// most cases. It is nil until the multiplexer is stopped.
func (m *Multiplexer) Err() error {
	if !m.Stopped() {
		return nil
	}
	return multierr.Combine(m.eerr, m.ierr)
}

func (m *Multiplexer) Statistics() Statistics {
	return m.stat.snapshot()
}
