// Copyright 2019 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/panics"
)

type entry struct {
	ctx context.Context
	r   Request
	w   ResponseWriter
}

type asyncHandler struct {
	h      Handler
	idle   time.Duration
	plog   func(interface{})
	entryC chan entry
}

// AsyncHandler convert a handler to asynchronous mode, then each call is initiated
// from a separate worker goroutine. Workers exit after staying idle for
// workerIdleTimeout.
//
// Responses may leave in a different order than the requests arrived.
// panicLog can be nil, it receives a *panics.Recovered.
func AsyncHandler(h Handler, workerIdleTimeout time.Duration, panicLog func(interface{})) Handler {
	return &asyncHandler{
		h:      h,
		idle:   workerIdleTimeout,
		plog:   panicLog,
		entryC: make(chan entry),
	}
}

func (h *asyncHandler) Process(ctx context.Context, r Request, w ResponseWriter) {
	h.async(entry{ctx, r, w})
}

func (h *asyncHandler) async(e entry) {
	select {
	case <-e.ctx.Done():
	case h.entryC <- e:
	default:
		go h.work(e)
	}
}

func (h *asyncHandler) work(e entry) {
	h.handle(e)

	t := time.NewTimer(h.idle)

	for q := false; !q; {
		select {
		case e = <-h.entryC:
			h.handle(e)

			if !t.Stop() {
				<-t.C
			}
			t.Reset(h.idle)
		case <-t.C:
			q = true
		}
	}
}

func (h *asyncHandler) handle(e entry) {
	var pc panics.Catcher
	pc.Try(func() { h.h.Process(e.ctx, e.r, e.w) })
	if r := pc.Recovered(); r != nil && h.plog != nil {
		h.plog(r)
	}
}
