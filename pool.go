// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	// poolEntriesPerPage is the slot count of one directory page. One
	// page's free set fits a single 64-bit word.
	poolEntriesPerPage = 64

	// poolMaxPages bounds the page table. Together with the page size
	// this caps any directory at the 23-bit address index space.
	poolMaxPages = 1 << (addressIndexBits - 6)
)

// poolSlot is one generational directory slot.
//
// The sequence distinguishes generations of the slot. It advances when a
// previously freed slot is allocated again, never on free, and wraps at
// 2^32. Sequence zero is never issued, so the zero Address can never
// resolve; the cycle is therefore 2^32−1 values long, and an address
// aliases only after a multiple of 2^32−1 reuses of its slot.
type poolSlot[T any] struct {
	item     atomic.Pointer[T]
	sequence atomic.Uint32
}

type poolPage[T any] struct {
	slots [poolEntriesPerPage]poolSlot[T]
	free  uint64 // bit set ⇔ slot free; guarded by the pool mutex
}

// pagedPool is an append-grown table of fixed-capacity pages addressed
// by a dense integer index, with per-slot generational sequences.
//
// Allocation always prefers the lowest page with capacity, keeping the
// live set dense at low indices; maxPage records the highest page ever
// materialized. Allocation scans the page table from page 0 and lookups
// bound-check against the table length; neither reads maxPage.
//
// allocate and free serialize on a single mutex; they are rare and never
// on the message hot path. get and resolve are lock-free reads validated
// by the slot sequence.
type pagedPool[T any] struct {
	mu       sync.Mutex
	pages    []atomic.Pointer[poolPage[T]] // fixed-size table, pages materialized on first use
	capacity uint32
	live     uint32
	maxPage  int
}

// newPagedPool creates a directory holding up to capacity entries.
func newPagedPool[T any](capacity int) *pagedPool[T] {
	if capacity < 1 {
		panic("hive: directory capacity must be >= 1")
	}
	if capacity > poolMaxPages*poolEntriesPerPage {
		capacity = poolMaxPages * poolEntriesPerPage
	}
	npages := (capacity + poolEntriesPerPage - 1) / poolEntriesPerPage
	return &pagedPool[T]{
		pages:    make([]atomic.Pointer[poolPage[T]], npages),
		capacity: uint32(capacity),
		maxPage:  -1,
	}
}

// allocate claims the lowest free slot, publishes item in it, and
// returns the slot index with its current sequence.
// Returns ErrCapacityExhausted when every slot is live.
func (p *pagedPool[T]) allocate(item *T) (index uint32, sequence uint32, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live >= p.capacity {
		return 0, 0, ErrCapacityExhausted
	}

	for pi := range p.pages {
		page := p.pages[pi].Load()
		if page == nil {
			page = &poolPage[T]{free: pageFreeMask(p.capacity, pi)}
			p.pages[pi].Store(page)
			if pi > p.maxPage {
				p.maxPage = pi
			}
		}
		if page.free == 0 {
			continue
		}

		si := bits.TrailingZeros64(page.free)
		page.free &^= 1 << si

		slot := &page.slots[si]
		seq := slot.sequence.Load() + 1
		if seq == 0 {
			seq = 1 // wrap: sequence zero is reserved for the invalid address
		}
		slot.sequence.Store(seq)
		slot.item.Store(item)

		p.live++
		return uint32(pi*poolEntriesPerPage + si), seq, nil
	}

	return 0, 0, ErrCapacityExhausted
}

// free releases the slot. The sequence is left as is; the next allocate
// of this slot advances it, invalidating outstanding addresses.
func (p *pagedPool[T]) free(index uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeLocked(index)
}

// freeLocked is free for callers already holding the pool mutex.
func (p *pagedPool[T]) freeLocked(index uint32) {
	pi, si := int(index)/poolEntriesPerPage, int(index)%poolEntriesPerPage
	page := p.pages[pi].Load()
	if page == nil || page.free&(1<<si) != 0 {
		assert(false, "free of unallocated directory slot")
		return
	}
	page.slots[si].item.Store(nil)
	page.free |= 1 << si
	p.live--
}

// resolveLocked is resolve for callers already holding the pool mutex.
func (p *pagedPool[T]) resolveLocked(index, sequence uint32) *T {
	return p.resolve(index, sequence)
}

// get returns the item at index, or nil if the slot is free or out of
// range. Lock-free.
func (p *pagedPool[T]) get(index uint32) *T {
	pi := int(index) / poolEntriesPerPage
	if pi >= len(p.pages) {
		return nil
	}
	page := p.pages[pi].Load()
	if page == nil {
		return nil
	}
	return page.slots[index%poolEntriesPerPage].item.Load()
}

// resolve returns the item at index only if the slot currently holds
// sequence. Lock-free.
//
// The sequence is loaded before and after the item: observing the wanted
// sequence on the first load orders the item load after any prior
// generation's teardown, so a stale generation's item is never returned
// for a current-generation address.
func (p *pagedPool[T]) resolve(index, sequence uint32) *T {
	pi := int(index) / poolEntriesPerPage
	if pi >= len(p.pages) {
		return nil
	}
	page := p.pages[pi].Load()
	if page == nil {
		return nil
	}
	slot := &page.slots[index%poolEntriesPerPage]

	s1 := slot.sequence.Load()
	if s1 != sequence {
		return nil
	}
	item := slot.item.Load()
	if item == nil || slot.sequence.Load() != sequence {
		return nil
	}
	return item
}

// count returns the number of live entries.
func (p *pagedPool[T]) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.live)
}

// pageFreeMask returns the initial free set of page pi for a directory
// of the given capacity (the last page may be partial).
func pageFreeMask(capacity uint32, pi int) uint64 {
	base := uint32(pi * poolEntriesPerPage)
	n := capacity - base
	if n >= poolEntriesPerPage {
		return ^uint64(0)
	}
	return 1<<n - 1
}
