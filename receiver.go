// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// defaultMaxReceivers is the process receiver directory capacity unless
// SetMaxReceivers raises it before the first receiver is created.
const defaultMaxReceivers = 4096

// receiverRingCapacity sizes each receiver's lock-free fast lane.
const receiverRingCapacity = 256

var receiverDirectory struct {
	mu       sync.Mutex
	pool     *pagedPool[Receiver]
	capacity int
}

// SetMaxReceivers configures the process-wide receiver directory
// capacity. Must be called before the first receiver is created;
// panics afterwards.
func SetMaxReceivers(n int) {
	if n < 1 {
		panic("hive: max receivers must be >= 1")
	}
	receiverDirectory.mu.Lock()
	defer receiverDirectory.mu.Unlock()
	if receiverDirectory.pool != nil {
		panic("hive: SetMaxReceivers after first receiver")
	}
	receiverDirectory.capacity = n
}

func receiverPool() *pagedPool[Receiver] {
	receiverDirectory.mu.Lock()
	defer receiverDirectory.mu.Unlock()
	if receiverDirectory.pool == nil {
		capacity := receiverDirectory.capacity
		if capacity == 0 {
			capacity = defaultMaxReceivers
		}
		receiverDirectory.pool = newPagedPool[Receiver](capacity)
	}
	return receiverDirectory.pool
}

// Receiver is an addressable endpoint outside any actor: external code
// creates one, hands its address to actors, and waits for replies.
//
// Delivery lands on a lock-free MPSC ring; when the ring is full,
// envelopes spill to a spinlocked overflow list, keeping the receiver
// unbounded. A single goroutine may consume (Wait, TryReceive); any
// number of senders may target the address concurrently.
type Receiver struct {
	address Address

	ring *relay

	ovLock     spinLock
	ovHead     *Envelope
	ovTail     *Envelope
	overflowed atomix.Bool

	mu      sync.Mutex
	cond    *sync.Cond
	pending atomix.Int64

	alloc  *sharedMsgAlloc
	closed atomix.Bool
}

// NewReceiver creates a receiver and registers it in the process
// receiver directory. Returns ErrCapacityExhausted when the directory
// is full.
func NewReceiver() (*Receiver, error) {
	r := &Receiver{
		ring:  newRelay(receiverRingCapacity),
		alloc: newSharedMsgAlloc(processAllocator()),
	}
	r.cond = sync.NewCond(&r.mu)

	index, sequence, err := receiverPool().allocate(r)
	if err != nil {
		return nil, err
	}
	r.address = makeAddress(0, true, index, sequence)
	return r, nil
}

// Address returns the receiver's address. Sends to it deliver directly
// to this receiver's queue, bypassing the scheduler.
func (r *Receiver) Address() Address {
	return r.address
}

// Close deregisters the receiver and drains undelivered envelopes.
// Pending sends already holding the receiver may still land; Close is
// meant for quiescent teardown.
func (r *Receiver) Close() {
	if !r.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	receiverPool().free(r.address.Index())
	for {
		e := r.take()
		if e == nil {
			break
		}
		r.alloc.release(e)
	}
	r.alloc.clear()
}

// push delivers one envelope. Called by the send path.
func (r *Receiver) push(e *Envelope) {
	if r.overflowed.LoadAcquire() || r.ring.enqueue(e) != nil {
		r.ovLock.Lock()
		r.overflowed.StoreRelease(true)
		if r.ovTail == nil {
			r.ovHead = e
		} else {
			r.ovTail.next = e
		}
		r.ovTail = e
		r.ovLock.Unlock()
	}
	r.pending.Add(1)

	r.mu.Lock()
	r.mu.Unlock()
	r.cond.Signal()
}

// take removes the next envelope, or nil. Single consumer. The ring is
// drained before the overflow list; a sender that has spilled once
// keeps spilling until the overflow drains, which preserves per-sender
// FIFO across the two lanes.
func (r *Receiver) take() *Envelope {
	if e, err := r.ring.dequeue(); err == nil {
		return e
	}
	if !r.overflowed.LoadAcquire() {
		return nil
	}
	r.ovLock.Lock()
	e := r.ovHead
	if e != nil {
		r.ovHead = e.next
		e.next = nil
		if r.ovHead == nil {
			r.ovTail = nil
			r.overflowed.StoreRelease(false)
		}
	}
	r.ovLock.Unlock()
	return e
}

// TryReceive returns the next message without blocking.
// Returns ErrWouldBlock when no message is queued.
func (r *Receiver) TryReceive() (msg any, from Address, err error) {
	e := r.take()
	if e == nil {
		return nil, AddressInvalid, ErrWouldBlock
	}
	r.pending.Add(-1)
	msg, from = e.payload, e.from
	r.alloc.release(e)
	return msg, from, nil
}

// Wait blocks until a message arrives and returns it with the sender
// address.
func (r *Receiver) Wait() (msg any, from Address) {
	r.mu.Lock()
	for r.pending.Load() == 0 {
		r.cond.Wait()
	}
	r.mu.Unlock()

	// pending > 0 and we are the only consumer: an envelope is either
	// visible already or about to complete its ring publish.
	for {
		e := r.take()
		if e == nil {
			continue
		}
		r.pending.Add(-1)
		msg, from = e.payload, e.from
		r.alloc.release(e)
		return msg, from
	}
}

// Count returns the number of queued messages.
func (r *Receiver) Count() int64 {
	return r.pending.Load()
}
