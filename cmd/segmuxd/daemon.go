// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/someonegg/segmux"
	"github.com/someonegg/segmux/peer"
	"go.uber.org/zap"
)

// role runs one mini-protocol on its channel for the life of a session.
type role func(ctx context.Context, ch *segmux.Channel) error

type daemon struct {
	cfg Config
	log *zap.Logger
	reg prometheus.Registerer
}

func (d *daemon) listen(ctx context.Context) error {
	if d.cfg.Network == "ws" {
		return d.listenWebsocket(ctx)
	}

	l, err := net.Listen(d.cfg.Network, d.cfg.Address)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	d.log.Info("listening", zap.String("network", d.cfg.Network), zap.String("address", d.cfg.Address))

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go d.session(ctx, segmux.NewNetconnBearer(conn), conn.RemoteAddr().String(), d.echo)
	}
}

func (d *daemon) listenWebsocket(ctx context.Context) error {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/segmux", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.log.Warn("websocket upgrade", zap.Error(err))
			return
		}
		d.session(ctx, segmux.NewWebsocketBearer(conn), r.RemoteAddr, d.echo)
	})

	srv := &http.Server{Addr: d.cfg.Address, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	d.log.Info("listening", zap.String("network", "ws"), zap.String("address", d.cfg.Address))

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *daemon) dial(ctx context.Context) error {
	var b segmux.Bearer
	err := retry.Do(
		func() (err error) {
			b, err = d.connect(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(d.cfg.Dial.Attempts),
		retry.Delay(d.cfg.Dial.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.log.Warn("dial failed", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}

	return d.session(ctx, b, d.cfg.Address, d.ping)
}

func (d *daemon) connect(ctx context.Context) (segmux.Bearer, error) {
	if d.cfg.Network == "ws" {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.cfg.Address, nil)
		if err != nil {
			return nil, err
		}
		return segmux.NewWebsocketBearer(conn), nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, d.cfg.Network, d.cfg.Address)
	if err != nil {
		return nil, err
	}
	return segmux.NewNetconnBearer(conn), nil
}

// session multiplexes the configured protocols over b until the connection
// fails or ctx is done.
func (d *daemon) session(ctx context.Context, b segmux.Bearer, remote string, r role) error {
	log := d.log.With(zap.String("remote", remote))

	if d.cfg.Dump {
		b = &segmux.SegmentDump{B: b, Dump: os.Stderr}
	}

	m, err := segmux.Setup(b, d.cfg.protocolIDs(), d.cfg.muxConfig(log))
	if err != nil {
		log.Error("multiplexer setup", zap.Error(err))
		return err
	}

	col := segmux.NewCollector(m, prometheus.Labels{"mux": m.ID()})
	if err := d.reg.Register(col); err != nil {
		log.Warn("metrics register", zap.Error(err))
	}
	defer d.reg.Unregister(col)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.StopD():
		}
	}()

	for _, id := range d.cfg.protocolIDs() {
		ch, err := m.Claim(id)
		if err != nil {
			m.Stop()
			return err
		}
		go func() {
			if err := r(ctx, ch); err != nil && ctx.Err() == nil {
				log.Warn("protocol ended", zap.Uint16("protocol", uint16(ch.Protocol())), zap.Error(err))
			}
		}()
	}

	err = m.Join()
	log.Info("session ended", zap.Error(err))
	return err
}

func (d *daemon) echo(ctx context.Context, ch *segmux.Channel) error {
	return peer.Serve(ctx, ch, peer.HandlerFunc(func(ctx context.Context, r peer.Request, w peer.ResponseWriter) {
		w(r)
	}))
}

func (d *daemon) ping(ctx context.Context, ch *segmux.Channel) error {
	p := peer.New(ch)
	t := time.NewTicker(d.cfg.PingInterval)
	defer t.Stop()

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		start := time.Now()
		req := []byte(strconv.Itoa(seq))
		resp, err := p.Do(ctx, req)
		if err != nil {
			return err
		}
		if !bytes.Equal(resp, req) {
			d.log.Warn("unexpected pong", zap.Uint16("protocol", uint16(ch.Protocol())), zap.ByteString("pong", resp))
			continue
		}
		d.log.Info("pong", zap.Uint16("protocol", uint16(ch.Protocol())),
			zap.Int("seq", seq), zap.Duration("rtt", time.Since(start)))
	}
}
