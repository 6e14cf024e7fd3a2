// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "code.hybscloud.com/atomix"

// workerCounters are the per-worker event counters. All fields are
// atomics: workers write them lock-free on the hot path and snapshots
// read them concurrently.
type workerCounters struct {
	messagesProcessed atomix.Uint64
	localPushes       atomix.Uint64
	sharedPushes      atomix.Uint64
	yields            atomix.Uint64
	maxMailboxDepth   atomix.Uint64
}

// observeDepth raises maxMailboxDepth to depth if it is a new maximum.
func (c *workerCounters) observeDepth(depth uint64) {
	for {
		cur := c.maxMailboxDepth.Load()
		if depth <= cur || c.maxMailboxDepth.CompareAndSwapAcqRel(cur, depth) {
			return
		}
	}
}

func (c *workerCounters) snapshot() CounterSnapshot {
	return CounterSnapshot{
		MessagesProcessed: c.messagesProcessed.Load(),
		LocalPushes:       c.localPushes.Load(),
		SharedPushes:      c.sharedPushes.Load(),
		Yields:            c.yields.Load(),
		MaxMailboxDepth:   c.maxMailboxDepth.Load(),
	}
}

// CounterSnapshot is a read-only copy of scheduler counters, either for
// one worker or merged across all workers of a framework.
type CounterSnapshot struct {
	// MessagesProcessed counts envelopes dispatched to handlers,
	// default handlers, or the fallback.
	MessagesProcessed uint64

	// LocalPushes counts mailboxes scheduled through a worker's
	// single-slot local queue (the tail-call fast path).
	LocalPushes uint64

	// SharedPushes counts mailboxes promoted out of a worker's local
	// slot onto the shared queue. Shared-queue pushes made without a
	// worker context (external and cross-framework sends) are not
	// counted.
	SharedPushes uint64

	// Yields counts empty-handed pop rounds.
	Yields uint64

	// MaxMailboxDepth is the deepest mailbox observed at dispatch.
	MaxMailboxDepth uint64
}

// merge folds o into s, keeping the max of MaxMailboxDepth.
func (s CounterSnapshot) merge(o CounterSnapshot) CounterSnapshot {
	s.MessagesProcessed += o.MessagesProcessed
	s.LocalPushes += o.LocalPushes
	s.SharedPushes += o.SharedPushes
	s.Yields += o.Yields
	if o.MaxMailboxDepth > s.MaxMailboxDepth {
		s.MaxMailboxDepth = o.MaxMailboxDepth
	}
	return s
}
