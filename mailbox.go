// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"code.hybscloud.com/atomix"
	"github.com/gammazero/deque"
)

// Mailbox dispatch states. A mailbox is "busy" (queued for dispatch or
// being dispatched) in every state but mboxIdle.
//
//	mboxIdle             not queued, not dispatching, queue empty
//	mboxScheduled        on the shared queue or in a worker's local slot
//	mboxDispatching      a worker popped it and is running one envelope
//	mboxDispatchingDirty a send landed during dispatch; re-enqueue when done
//
// Transitions happen under the mailbox spinlock, stored atomically so
// quiescence checks can read the state without the lock.
const (
	mboxIdle int32 = iota
	mboxScheduled
	mboxDispatching
	mboxDispatchingDirty
)

// Mailbox is the per-actor inbound FIFO.
//
// Envelopes pushed after any single observed lock/unlock pair are
// popped strictly first-in-first-out. There is no cross-mailbox
// ordering.
//
// The struct is padded to a cache line so adjacent mailboxes in the
// directory never share one. The intrusive next link lets the mailbox
// itself be chained on a work queue without allocation; the invariant
// is that a mailbox appears at most once on the shared queue and at
// most once as the local slot of exactly one worker, and on neither
// while a worker is holding it.
type Mailbox struct {
	lock    spinLock
	address Address
	queue   deque.Deque[*Envelope]
	count   uint32
	state   atomix.Int32
	next    *Mailbox // intrusive work-queue link, owned by the queue holding the mailbox
	_       pad
}

func newMailbox(address Address) *Mailbox {
	return &Mailbox{address: address}
}

// Address returns the mailbox address.
func (mb *Mailbox) Address() Address { return mb.address }

// Count returns the redundant queue length. Callers that need it
// consistent with the queue must hold the lock.
func (mb *Mailbox) Count() uint32 { return mb.count }

// push appends an envelope. Caller holds the lock.
func (mb *Mailbox) push(e *Envelope) {
	mb.queue.PushBack(e)
	mb.count++
}

// front returns the oldest envelope without removing it. Caller holds
// the lock and has checked empty.
func (mb *Mailbox) front() *Envelope {
	return mb.queue.Front()
}

// pop removes and returns the oldest envelope. Caller holds the lock
// and has checked empty.
func (mb *Mailbox) pop() *Envelope {
	e := mb.queue.PopFront()
	mb.count--
	assert(mb.count == uint32(mb.queue.Len()), "mailbox count out of sync")
	return e
}

// empty reports whether the queue holds no envelopes. Caller holds the
// lock.
func (mb *Mailbox) empty() bool {
	return mb.count == 0
}

// pushAndPlan pushes e and decides the scheduling action. Caller holds
// the lock. Returns true when the caller must hand the mailbox to the
// scheduler: only the empty→non-empty edge schedules, so a burst of
// sends costs one scheduler push.
func (mb *Mailbox) pushAndPlan(e *Envelope) (schedule bool) {
	mb.push(e)
	switch mb.state.Load() {
	case mboxIdle:
		mb.state.Store(mboxScheduled)
		return true
	case mboxDispatching:
		// The dispatching worker re-checks the queue when done and
		// re-enqueues; just record that it must.
		mb.state.Store(mboxDispatchingDirty)
	}
	return false
}

// beginDispatch marks the mailbox as being dispatched. Caller holds the
// lock; the mailbox came off a queue in state Scheduled.
func (mb *Mailbox) beginDispatch() {
	assert(mb.state.Load() == mboxScheduled, "dispatch of unscheduled mailbox")
	mb.state.Store(mboxDispatching)
}

// endDispatch settles the state after one envelope was dispatched.
// Caller holds the lock. Returns true when the mailbox is still
// non-empty and must be rescheduled by the caller.
func (mb *Mailbox) endDispatch() (reschedule bool) {
	if mb.count > 0 {
		mb.state.Store(mboxScheduled)
		return true
	}
	mb.state.Store(mboxIdle)
	return false
}

// idle reports whether the mailbox is neither queued nor dispatching.
// Lock-free; used by quiescence checks.
func (mb *Mailbox) idle() bool {
	return mb.state.Load() == mboxIdle
}
