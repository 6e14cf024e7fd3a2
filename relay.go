// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// relay is an FAA-based multi-producer single-consumer bounded ring of
// envelope pointers: the fast lane of receiver delivery.
//
// Producers use Fetch-And-Add to blindly claim positions (SCQ-style),
// requiring 2n physical slots for capacity n. Cycle-based slot
// validation provides ABA safety: each slot tracks which round it
// belongs to via cycle = position / capacity.
//
// Enqueue returns ErrWouldBlock when the ring is full; the receiver
// then falls back to its spinlocked overflow list, which keeps delivery
// unbounded without giving up the lock-free common case.
type relay struct {
	_        pad
	head     atomix.Uint64 // consumer index (single consumer writes, producers read)
	_        pad
	tail     atomix.Uint64 // producer index (FAA)
	_        pad
	buffer   []relaySlot
	capacity uint64 // n (usable capacity)
	size     uint64 // 2n (physical slots)
	mask     uint64 // 2n - 1
}

type relaySlot struct {
	cycle atomix.Uint64 // round number for this slot
	data  unsafe.Pointer
	_     padShort
}

// newRelay creates a relay ring. Capacity rounds up to the next power
// of 2; physical slot count is 2n for capacity n.
func newRelay(capacity int) *relay {
	if capacity < 2 {
		panic("hive: relay capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	size := n * 2

	r := &relay{
		buffer:   make([]relaySlot, size),
		capacity: n,
		size:     size,
		mask:     size - 1,
	}

	for i := uint64(0); i < size; i++ {
		r.buffer[i].cycle.StoreRelaxed(i / n)
	}

	return r
}

// enqueue adds an envelope (multiple producers safe).
// Returns ErrWouldBlock if the ring is full.
func (r *relay) enqueue(e *Envelope) error {
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		head := r.head.LoadRelaxed()
		if tail >= head+r.capacity {
			return ErrWouldBlock
		}

		myTail := r.tail.AddAcqRel(1) - 1

		slot := &r.buffer[myTail&r.mask]
		expectedCycle := myTail / r.capacity

		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			slot.data = unsafe.Pointer(e)
			slot.cycle.StoreRelease(expectedCycle + 1)
			return nil
		}

		if int64(slotCycle) < int64(expectedCycle) {
			return ErrWouldBlock // ring full
		}
		sw.Once()
	}
}

// dequeue removes and returns an envelope (single consumer only).
// Returns (nil, ErrWouldBlock) if the ring is empty.
func (r *relay) dequeue() (*Envelope, error) {
	head := r.head.LoadRelaxed()
	cycle := head / r.capacity
	slot := &r.buffer[head&r.mask]

	slotCycle := slot.cycle.LoadAcquire()

	if slotCycle != cycle+1 {
		return nil, ErrWouldBlock
	}

	e := (*Envelope)(slot.data)
	slot.data = nil
	nextEnqCycle := (head + r.size) / r.capacity
	slot.cycle.StoreRelease(nextEnqCycle)
	r.head.StoreRelaxed(head + 1)

	return e, nil
}

// cap returns the ring capacity.
func (r *relay) cap() int {
	return int(r.capacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
