// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

// spinScheduler is the non-blocking scheduler: a spinlocked shared FIFO
// plus per-worker local slots, with progressive backoff through the
// configured yield policy. Workers never sleep on a primitive; POLITE
// is the only strategy that sleeps at all, and only briefly.
type spinScheduler struct {
	shared   workQueue
	strategy YieldStrategy
}

func newSpinScheduler(strategy YieldStrategy) *spinScheduler {
	if strategy == YieldBlocking {
		panic("hive: BLOCKING strategy requires the blocking scheduler")
	}
	return &spinScheduler{strategy: strategy}
}

func (s *spinScheduler) Push(mb *Mailbox, w *workerContext) {
	if w != nil {
		w.counters.localPushes.Add(1)
		if promoted := w.putLocal(mb); promoted != nil {
			w.counters.sharedPushes.Add(1)
			s.shared.push(promoted)
		}
		return
	}
	s.shared.push(mb)
}

func (s *spinScheduler) Pop(w *workerContext) *Mailbox {
	if mb := w.takeLocal(); mb != nil {
		w.yield.reset()
		return mb
	}
	if mb := s.shared.pop(); mb != nil {
		w.yield.reset()
		return mb
	}
	w.counters.yields.Add(1)
	w.yield.wait(s.strategy)
	return nil
}

func (s *spinScheduler) Initialize(w *workerContext) {
	w.yield.reset()
	w.alloc = newMsgAlloc(processAllocator())
}

func (s *spinScheduler) Teardown(w *workerContext) {
	if w.alloc != nil {
		w.alloc.clear()
	}
}

// WakeAll is a no-op: non-blocking workers poll.
func (s *spinScheduler) WakeAll() {}

func (s *spinScheduler) SharedEmpty() bool {
	return s.shared.empty()
}
