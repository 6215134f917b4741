// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package segmux provides a segment multiplexer.
//
// Several independent mini-protocols share a single transport, the Bearer.
// Every payload sent by a mini-protocol is tagged with its 16-bit protocol
// id and split into segments of at most MaxSegmentPayloadLength bytes. Each
// mini-protocol owns a private duplex Channel; the multiplexer is the only
// component that touches the bearer.
//
// After Setup, two working loops run until Stop or a transport failure:
//
//	egress:  scans the outbound queue of every protocol, at most one payload
//	         per protocol per pass, and writes its segments to the bearer.
//	         When a pass finds an empty queue it waits Config.IdleInterval.
//	ingress: reads segments from the bearer and routes each one to the
//	         inbound queue of its protocol. Segments are not reassembled.
//
// Queues are unbounded. Closing the sending side of a channel removes the
// protocol from egress once its queue is drained; closing the receiving side
// removes it from ingress. Other protocols are not affected.
//
// The transport layer is defined by the Bearer interface, there are two
// default implementations:
//
//	NetconnBearer over net.Conn
//	WebsocketBearer over websocket.Conn
//
// Both use the segment layout:
//
//	Timestamp(4 bytes)Protocol(2 bytes)Length(2 bytes)Payload, big-endian
//
// Here is a quick example.
//
//	conn, err := net.Dial("tcp", TheAddr)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mux, err := segmux.NetconnMultiplexer(conn, []segmux.ProtocolID{0, 2}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	handshake, _ := mux.Claim(0)
//	handshake.Send([]byte("propose"))
//	resp, err := handshake.Recv(ctx)
//
//	// ...
//
//	mux.Stop()
//	err = mux.Join()
package segmux
