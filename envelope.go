// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

// Envelope carries one message: the sender address, the payload value,
// its type tag, and the block size needed to free cache-allocated
// payload storage.
//
// Ownership transfers from sender to receiver across the mailbox. The
// worker that dispatches the envelope frees it; on delivery failure the
// runtime reclaims it after routing it through the fallback handler.
// Handlers and fallback handlers must not retain an Envelope or a
// cache-allocated payload beyond the invocation.
type Envelope struct {
	next    *Envelope // free-list link
	from    Address
	to      Address
	tag     messageTag
	payload any
	block   []byte // cache-allocated payload storage, nil unless a data message
	size    int32  // recorded block size for the sized free path
}

// From returns the sender address.
func (e *Envelope) From() Address { return e.from }

// To returns the destination address.
func (e *Envelope) To() Address { return e.to }

// Message returns the payload value.
func (e *Envelope) Message() any { return e.payload }

// TypeName returns the registered name of the payload type, or the
// runtime type string when unregistered.
func (e *Envelope) TypeName() string { return e.tag.String() }

// msgAllocMaxFree bounds the envelopes held on one free list; mirrors
// the caching allocator's per-pool block bound.
const msgAllocMaxFree = cacheMaxBlocks

// msgAlloc is the per-context message allocator: a free list of
// envelope blocks over a caching allocator for payload storage.
//
// Each worker owns a private msgAlloc on its hot path. External senders
// share one instance guarded by a spinlock. Cross-context frees (an
// envelope allocated on one worker, freed on another) are expected and
// correct; they only sacrifice cache locality.
type msgAlloc struct {
	free   *Envelope
	nfree  int
	blocks *cacheAlloc
}

func newMsgAlloc(inner Allocator) *msgAlloc {
	return &msgAlloc{blocks: newCacheAlloc(inner)}
}

// newEnvelope constructs an envelope for payload, reusing a free block
// when one is cached.
func (m *msgAlloc) newEnvelope(from, to Address, payload any) *Envelope {
	e := m.free
	if e != nil {
		m.free = e.next
		m.nfree--
		e.next = nil
	} else {
		e = &Envelope{}
	}
	e.from = from
	e.to = to
	e.tag = tagOf(payload)
	e.payload = payload
	return e
}

// newDataEnvelope constructs an envelope whose payload is a copy of
// data staged in a cache-allocated block. The block size is recorded so
// release can return it through the sized free path.
func (m *msgAlloc) newDataEnvelope(from, to Address, data []byte) *Envelope {
	size := len(data)
	if size < cacheMinSize {
		size = cacheMinSize
	} else if size&3 != 0 {
		size = (size + 3) &^ 3
	}
	block := m.blocks.Allocate(size)
	if block == nil {
		return nil
	}
	n := copy(block, data)

	e := m.newEnvelope(from, to, block[:n:n])
	e.block = block
	e.size = int32(size)
	return e
}

// release destructs the payload in place and returns the envelope block
// to the free list, and any payload block to the caching allocator
// sized by the size recorded at construction.
func (m *msgAlloc) release(e *Envelope) {
	if e.block != nil {
		m.blocks.FreeSized(e.block, int(e.size))
		e.block = nil
	}
	e.payload = nil
	e.tag = messageTag{}
	e.from, e.to = AddressInvalid, AddressInvalid
	e.size = 0

	if m.nfree >= msgAllocMaxFree {
		return // drop to the collector
	}
	e.next = m.free
	m.free = e
	m.nfree++
}

// clear drains the free list and the payload block pools.
func (m *msgAlloc) clear() {
	m.free = nil
	m.nfree = 0
	m.blocks.Clear()
}

// sharedMsgAlloc is the spinlocked message allocator for senders that
// are not workers (external goroutines, receivers replying).
type sharedMsgAlloc struct {
	lock spinLock
	m    *msgAlloc
}

func newSharedMsgAlloc(inner Allocator) *sharedMsgAlloc {
	return &sharedMsgAlloc{m: newMsgAlloc(inner)}
}

func (s *sharedMsgAlloc) newEnvelope(from, to Address, payload any) *Envelope {
	s.lock.Lock()
	e := s.m.newEnvelope(from, to, payload)
	s.lock.Unlock()
	return e
}

func (s *sharedMsgAlloc) newDataEnvelope(from, to Address, data []byte) *Envelope {
	s.lock.Lock()
	e := s.m.newDataEnvelope(from, to, data)
	s.lock.Unlock()
	return e
}

func (s *sharedMsgAlloc) release(e *Envelope) {
	s.lock.Lock()
	s.m.release(e)
	s.lock.Unlock()
}

func (s *sharedMsgAlloc) clear() {
	s.lock.Lock()
	s.m.clear()
	s.lock.Unlock()
}
