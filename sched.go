// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "code.hybscloud.com/atomix"

// scheduler is the one contract both scheduler variants implement.
//
// The two implementations differ fundamentally in their wait primitive
// — progressive backoff versus condition variable — so they are kept as
// separate types rather than one code path parameterized by strategy.
type scheduler interface {
	// Push enqueues a mailbox known to be non-empty, in state
	// Scheduled, and on no queue. A non-nil w is the calling worker's
	// own context and requests the local-slot tail push: the mailbox
	// swaps into w's single-slot local queue and any previous occupant
	// is promoted to the shared queue. With w nil the mailbox goes to
	// the shared queue.
	Push(mb *Mailbox, w *workerContext)

	// Pop dequeues the next mailbox for worker w: the local slot first,
	// then the shared queue. Returns nil after applying one round of
	// the yield policy when both are empty.
	Pop(w *workerContext) *Mailbox

	// Initialize prepares w's per-worker state before its first Pop.
	Initialize(w *workerContext)

	// Teardown releases w's per-worker state after its last Pop.
	Teardown(w *workerContext)

	// WakeAll pulses every sleeping worker. No-op for the non-blocking
	// variant; required for prompt shutdown of the blocking variant.
	WakeAll()

	// SharedEmpty reports whether the shared queue holds no mailbox.
	SharedEmpty() bool
}

// workerContext is the per-worker state: the single-slot local queue,
// the yield policy, event counters, the running flag the manager uses
// to stop the worker, and the worker's private message allocator.
//
// Only the owning worker touches localSlot, yield, and alloc. The
// manager and snapshots read only the atomic fields.
type workerContext struct {
	localSlot *Mailbox
	yield     yieldPolicy
	alloc     *msgAlloc

	running  atomix.Bool
	counters workerCounters

	joined chan struct{}
	_      pad
}

func newWorkerContext() *workerContext {
	return &workerContext{joined: make(chan struct{})}
}

// takeLocal removes and returns the local slot occupant, if any.
func (w *workerContext) takeLocal() *Mailbox {
	mb := w.localSlot
	w.localSlot = nil
	return mb
}

// putLocal swaps mb into the local slot and returns the promoted
// previous occupant, or nil. At most one mailbox ever occupies the
// slot: only the last mailbox messaged in a handler fast-paths through
// it; earlier ones compete via the shared queue.
func (w *workerContext) putLocal(mb *Mailbox) (promoted *Mailbox) {
	promoted = w.localSlot
	w.localSlot = mb
	return promoted
}
