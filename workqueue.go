// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

// workQueue is an unbounded FIFO of pending mailboxes chained through
// their intrusive next links.
//
// The embedded spinlock is held only around push and pop of one mailbox
// pointer. One workQueue is the shared queue of a scheduler; each
// worker additionally owns a single-slot local queue (see workerContext).
type workQueue struct {
	_    pad
	lock spinLock
	head *Mailbox
	tail *Mailbox
	_    pad
}

// push appends mb. mb must be non-empty, in state Scheduled, and on no
// other queue.
func (q *workQueue) push(mb *Mailbox) {
	assert(mb.next == nil, "mailbox already queued")
	q.lock.Lock()
	if q.tail == nil {
		q.head = mb
	} else {
		q.tail.next = mb
	}
	q.tail = mb
	q.lock.Unlock()
}

// pop removes and returns the oldest mailbox, or nil.
func (q *workQueue) pop() *Mailbox {
	q.lock.Lock()
	mb := q.head
	if mb != nil {
		q.head = mb.next
		if q.head == nil {
			q.tail = nil
		}
		mb.next = nil
	}
	q.lock.Unlock()
	return mb
}

// empty reports whether the queue currently holds no mailbox.
func (q *workQueue) empty() bool {
	q.lock.Lock()
	e := q.head == nil
	q.lock.Unlock()
	return e
}
