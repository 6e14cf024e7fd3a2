// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "sync"

// blockScheduler is the blocking scheduler: the shared FIFO lives under
// a mutex with a condition variable, and empty-handed workers sleep
// until a push pulses them.
//
// No pack library provides a condition variable, so this is the one
// place the runtime waits on sync.Cond. The local-slot fast path is
// identical to the non-blocking variant and never touches the mutex.
type blockScheduler struct {
	mu   sync.Mutex
	cond *sync.Cond
	head *Mailbox
	tail *Mailbox
}

func newBlockScheduler() *blockScheduler {
	s := &blockScheduler{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *blockScheduler) Push(mb *Mailbox, w *workerContext) {
	if w != nil {
		w.counters.localPushes.Add(1)
		if promoted := w.putLocal(mb); promoted != nil {
			w.counters.sharedPushes.Add(1)
			s.pushShared(promoted)
		}
		return
	}
	s.pushShared(mb)
}

func (s *blockScheduler) pushShared(mb *Mailbox) {
	assert(mb.next == nil, "mailbox already queued")
	s.mu.Lock()
	if s.tail == nil {
		s.head = mb
	} else {
		s.tail.next = mb
	}
	s.tail = mb
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *blockScheduler) Pop(w *workerContext) *Mailbox {
	if mb := w.takeLocal(); mb != nil {
		w.yield.reset()
		return mb
	}

	s.mu.Lock()
	for s.head == nil && w.running.Load() {
		w.counters.yields.Add(1)
		s.cond.Wait()
	}
	mb := s.head
	if mb != nil {
		s.head = mb.next
		if s.head == nil {
			s.tail = nil
		}
		mb.next = nil
	}
	s.mu.Unlock()
	if mb != nil {
		w.yield.reset()
	}
	return mb
}

func (s *blockScheduler) Initialize(w *workerContext) {
	w.yield.reset()
	w.alloc = newMsgAlloc(processAllocator())
}

func (s *blockScheduler) Teardown(w *workerContext) {
	if w.alloc != nil {
		w.alloc.clear()
	}
}

// WakeAll broadcasts to every waiter so stopped workers observe their
// cleared running flag promptly. Taking the mutex first orders the
// broadcast after any waiter's running check.
func (s *blockScheduler) WakeAll() {
	s.mu.Lock()
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *blockScheduler) SharedEmpty() bool {
	s.mu.Lock()
	e := s.head == nil
	s.mu.Unlock()
	return e
}
