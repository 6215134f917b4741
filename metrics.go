// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the Statistics of a Multiplexer to Prometheus.
type Collector struct {
	m *Multiplexer

	readSegments    *prometheus.Desc
	readBytes       *prometheus.Desc
	writtenSegments *prometheus.Desc
	writtenBytes    *prometheus.Desc
	sentPayloads    *prometheus.Desc
	queued          *prometheus.Desc
	unknown         *prometheus.Desc
	dropped         *prometheus.Desc
}

func NewCollector(m *Multiplexer, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("segmux", "", name), help, labels, constLabels)
	}
	return &Collector{
		m: m,

		readSegments:    desc("read_segments_total", "Segments read from the bearer.", "protocol"),
		readBytes:       desc("read_bytes_total", "Payload bytes read from the bearer.", "protocol"),
		writtenSegments: desc("written_segments_total", "Segments written to the bearer.", "protocol"),
		writtenBytes:    desc("written_bytes_total", "Payload bytes written to the bearer.", "protocol"),
		sentPayloads:    desc("sent_payloads_total", "Payloads queued by Channel.Send.", "protocol"),
		queued:          desc("queued_payloads", "Payloads waiting in a channel queue.", "protocol", "direction"),
		unknown:         desc("unknown_segments_total", "Segments read for protocols not being demuxed."),
		dropped:         desc("dropped_segments_total", "Segments dropped because the consumer was gone."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readSegments
	ch <- c.readBytes
	ch <- c.writtenSegments
	ch <- c.writtenBytes
	ch <- c.sentPayloads
	ch <- c.queued
	ch <- c.unknown
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.m.Statistics()

	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}

	for id, ps := range st.Protocols {
		p := strconv.Itoa(int(id))
		counter(c.readSegments, ps.ReadCount, p)
		counter(c.readBytes, ps.ReadBytes, p)
		counter(c.writtenSegments, ps.WrittenCount, p)
		counter(c.writtenBytes, ps.WrittenBytes, p)
		counter(c.sentPayloads, ps.SendCount, p)
		gauge(c.queued, ps.OutboundQueued, p, "outbound")
		gauge(c.queued, ps.InboundQueued, p, "inbound")
	}
	counter(c.unknown, st.UnknownCount)
	counter(c.dropped, st.DroppedCount)
}
