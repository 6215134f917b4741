// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultIdleInterval is how long the egress loop waits after a pass that
// found at least one empty outbound queue.
const DefaultIdleInterval = 10 * time.Millisecond

// Config tunes a Multiplexer. The zero value of every field means "default".
type Config struct {
	// MaxSegmentPayload is the chunk size limit, 1..MaxSegmentPayloadLength.
	MaxSegmentPayload int
	// IdleInterval is the egress wait between idle scan passes.
	IdleInterval time.Duration
	// Clock is sampled once per egress pass and drives the idle wait.
	Clock clock.Clock
	// Logger defaults to zap.L().
	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxSegmentPayload: MaxSegmentPayloadLength,
		IdleInterval:      DefaultIdleInterval,
		Clock:             clock.New(),
		Logger:            zap.L(),
	}
}

func (c *Config) normalize() (Config, error) {
	out := DefaultConfig()
	if c == nil {
		return out, nil
	}
	if c.MaxSegmentPayload != 0 {
		if c.MaxSegmentPayload < 0 || c.MaxSegmentPayload > MaxSegmentPayloadLength {
			return Config{}, fmt.Errorf("%w: %d", ErrInvalidSegmentLimit, c.MaxSegmentPayload)
		}
		out.MaxSegmentPayload = c.MaxSegmentPayload
	}
	if c.IdleInterval > 0 {
		out.IdleInterval = c.IdleInterval
	}
	if c.Clock != nil {
		out.Clock = c.Clock
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	return out, nil
}
