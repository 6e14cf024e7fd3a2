// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hive provides an in-process actor runtime: lightweight
// concurrent entities that communicate exclusively by asynchronous
// messages, executed cooperatively on a managed pool of worker threads.
//
// # Quick Start
//
//	fw, err := hive.NewFramework(hive.New().Threads(2, 4))
//	if err != nil {
//	    // process framework registry full
//	}
//	defer fw.Close()
//
//	actor, _ := fw.CreateActor()
//	hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
//	    return ctx.Send(from, n) == nil // echo
//	})
//
//	r, _ := hive.NewReceiver()
//	defer r.Close()
//
//	fw.Send(r.Address(), actor, uint32(42))
//	msg, _ := r.Wait() // uint32(42)
//
// # Model
//
// Every actor owns one mailbox: a spinlocked FIFO of envelopes. Within
// one actor at most one handler runs at any time; across actors,
// handlers run in parallel on the worker pool. A mailbox is scheduled
// only on its empty→non-empty edge, so a burst of sends to one actor
// costs a single scheduler push and preserves per-sender FIFO order.
//
// Entities are addressed by generational handles: a 64-bit Address
// packing a directory index and a per-slot sequence. Destroying an
// actor advances its slot's generation on reuse, so a stale address
// never resolves to the slot's next occupant — it routes to the
// framework fallback handler instead.
//
// # Scheduling
//
// Workers draw mailboxes from a two-tier queue: a single-slot local
// queue per worker and one shared queue per framework. A handler that
// messages several mailboxes keeps only the last one on its worker's
// local slot (the tail-call fast path); earlier ones are promoted to
// the shared queue and compete fairly.
//
// What a worker does when both tiers are empty is the yield strategy:
//
//	AGGRESSIVE  hyperthread pause, never sleeps
//	STRONG      pause, then yields the processor slice, never sleeps
//	POLITE      pause, yield, then brief adaptive sleep
//	BLOCKING    waits on a condition variable until pulsed
//
// The first three run on the non-blocking scheduler (spinlocked shared
// FIFO, progressive backoff); BLOCKING selects the blocking scheduler
// (mutex plus condition variable). A manager goroutine tracks the
// target worker count, applies NUMA and processor affinity, and reaps
// workers on shutdown.
//
// # Delivery and Fallback
//
// Send never blocks on the destination. Outcomes:
//
//   - delivered: a handler, or the actor default handler, takes it
//   - unhandled: no handler matched; the framework fallback gets it
//   - stale: the address no longer resolves; the send returns
//     ErrAddressStale after routing the envelope through the fallback
//
// A successful send's envelope is handled or fallback-routed exactly
// once; every envelope is freed by the worker that dispatches it.
//
// # Memory
//
// Byte payloads sent with SendData are staged in blocks obtained from
// the process allocator facade (SetAllocator), layered under per-worker
// caching allocators with small fixed size-class pools. Envelope
// structs and other payload values live on the Go heap; envelopes are
// recycled through per-worker free lists. Cross-worker frees are
// expected and correct; they only sacrifice cache locality.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// adaptive waiting, [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, and [code.hybscloud.com/spin] for CPU
// pause instructions.
package hive
