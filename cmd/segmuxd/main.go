// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command segmuxd runs a segment multiplexer over one connection per peer.
//
// In listen mode every payload received on a configured protocol is sent
// back on the same protocol. In dial mode segmuxd connects, with retries,
// and pings every configured protocol, logging round trips.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	path := flag.String("config", "segmuxd.yaml", "config file")
	flag.Parse()

	cfg, err := LoadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("segmuxd stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	reg := prometheus.NewRegistry()
	if cfg.Metrics != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Metrics, reg)
		})
	}

	d := &daemon{cfg: cfg, log: logger, reg: reg}
	g.Go(func() error {
		if cfg.Mode == "dial" {
			return d.dial(ctx)
		}
		return d.listen(ctx)
	})

	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
