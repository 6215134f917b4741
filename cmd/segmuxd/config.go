// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/someonegg/segmux"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the segmuxd configuration file.
//
//	mode: listen              # listen (echo every payload) or dial (ping)
//	network: tcp              # tcp, tcp4, tcp6, unix or ws
//	address: 127.0.0.1:3001   # ws: host:port to listen on, ws:// URL to dial
//	protocols: [0, 2, 3]
//	max_segment_payload: 0    # 0 means 65535
//	idle_interval: 10ms
//	ping_interval: 1s
//	metrics: 127.0.0.1:9101   # empty disables /metrics
//	dump: false               # dump every segment to stderr
//	log:
//	  level: info
//	  development: false
//	dial:
//	  attempts: 5
//	  delay: 500ms
type Config struct {
	Mode              string        `yaml:"mode"`
	Network           string        `yaml:"network"`
	Address           string        `yaml:"address"`
	Protocols         []uint16      `yaml:"protocols"`
	MaxSegmentPayload int           `yaml:"max_segment_payload"`
	IdleInterval      time.Duration `yaml:"idle_interval"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	Metrics           string        `yaml:"metrics"`
	Dump              bool          `yaml:"dump"`
	Log               LogConfig     `yaml:"log"`
	Dial              DialConfig    `yaml:"dial"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type DialConfig struct {
	Attempts uint          `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

func defaultConfig() Config {
	return Config{
		Mode:         "listen",
		Network:      "tcp",
		Address:      "127.0.0.1:3001",
		Protocols:    []uint16{0},
		IdleInterval: segmux.DefaultIdleInterval,
		PingInterval: time.Second,
		Log:          LogConfig{Level: "info"},
		Dial:         DialConfig{Attempts: 5, Delay: 500 * time.Millisecond},
	}
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case "listen", "dial":
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.Network {
	case "tcp", "tcp4", "tcp6", "unix", "ws":
	default:
		return fmt.Errorf("config: unknown network %q", c.Network)
	}
	if c.Address == "" {
		return errors.New("config: address is required")
	}
	if len(c.Protocols) == 0 {
		return errors.New("config: at least one protocol is required")
	}
	seen := make(map[uint16]bool, len(c.Protocols))
	for _, id := range c.Protocols {
		if seen[id] {
			return fmt.Errorf("config: duplicate protocol %d", id)
		}
		seen[id] = true
	}
	if c.MaxSegmentPayload < 0 || c.MaxSegmentPayload > segmux.MaxSegmentPayloadLength {
		return fmt.Errorf("config: max_segment_payload %d out of range", c.MaxSegmentPayload)
	}
	if c.Mode == "dial" && c.PingInterval <= 0 {
		return errors.New("config: ping_interval must be positive")
	}
	return nil
}

func (c Config) protocolIDs() []segmux.ProtocolID {
	ids := make([]segmux.ProtocolID, len(c.Protocols))
	for i, id := range c.Protocols {
		ids[i] = segmux.ProtocolID(id)
	}
	return ids
}

func (c Config) muxConfig(log *zap.Logger) *segmux.Config {
	return &segmux.Config{
		MaxSegmentPayload: c.MaxSegmentPayload,
		IdleInterval:      c.IdleInterval,
		Logger:            log,
	}
}

func newLogger(c LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		lvl, err := zap.ParseAtomicLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}
