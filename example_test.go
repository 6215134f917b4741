// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segmux_test

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/someonegg/segmux"
)

const (
	Handshake segmux.ProtocolID = 0
	ChainSync segmux.ProtocolID = 2
)

var Protocols = []segmux.ProtocolID{Handshake, ChainSync}

func server(conn net.Conn) {
	mux, err := segmux.NetconnMultiplexer(conn, Protocols, nil)
	if err != nil {
		log.Fatal(err)
	}

	for _, id := range Protocols {
		ch, err := mux.Claim(id)
		if err != nil {
			log.Fatal(err)
		}
		go func(ch *segmux.Channel) {
			for {
				p, err := ch.Recv(context.Background())
				if err != nil {
					return
				}
				ch.Send(append([]byte("re: "), p...))
			}
		}(ch)
	}

	mux.Join()
}

func Example() {
	cconn, sconn := net.Pipe()
	go server(sconn)

	mux, err := segmux.NetconnMultiplexer(cconn, Protocols, &segmux.Config{MaxSegmentPayload: 16})
	if err != nil {
		log.Fatal(err)
	}

	hs, _ := mux.Claim(Handshake)
	cs, _ := mux.Claim(ChainSync)

	hs.Send([]byte("propose versions"))
	cs.Send([]byte("find intersect"))

	ctx := context.Background()
	p, _ := hs.Recv(ctx)
	fmt.Printf("handshake: %s\n", p)
	p, _ = cs.Recv(ctx)
	fmt.Printf("chainsync: %s\n", p)

	mux.Stop()
	fmt.Println("stopped:", mux.Join())

	// Output:
	// handshake: re: propose versions
	// chainsync: re: find intersect
	// stopped: <nil>
}
