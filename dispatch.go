// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

// Context is the per-invocation view a handler gets of its actor and
// the worker running it. It is valid only for the duration of the
// handler call and must not be retained.
//
// Sends through the context allocate from the calling worker's private
// message allocator and schedule with the local-slot tail hint: of the
// mailboxes a handler messages, the last one stays on this worker's
// local slot, while earlier ones compete through the shared queue. When
// the dispatched actor's own mailbox still holds envelopes after the
// handler, the dispatcher's tail push takes the local slot for it and
// promotes that last mailbox to the shared queue.
type Context struct {
	fw   *Framework
	w    *workerContext
	self Address
}

// Self returns the address of the actor being dispatched.
func (c *Context) Self() Address { return c.self }

// Framework returns the owning framework.
func (c *Context) Framework() *Framework { return c.fw }

// Send delivers payload to the actor or receiver at to, with this
// actor as the sender.
func (c *Context) Send(to Address, payload any) error {
	return c.SendFrom(c.self, to, payload)
}

// SendFrom delivers payload with an explicit sender address.
func (c *Context) SendFrom(from, to Address, payload any) error {
	e := c.w.alloc.newEnvelope(from, to, payload)
	if e == nil {
		return ErrAllocationFailure
	}
	return c.fw.deliver(c.w, e)
}

// SendData copies data into a cache-allocated block and delivers it as
// a []byte message from this actor.
func (c *Context) SendData(to Address, data []byte) error {
	e := c.w.alloc.newDataEnvelope(c.self, to, data)
	if e == nil {
		return ErrAllocationFailure
	}
	return c.fw.deliver(c.w, e)
}

// dispatchMailbox processes exactly one envelope of one mailbox.
//
// The mailbox arrives off a queue in state Scheduled, held by this
// worker and on no queue. One envelope is popped under the mailbox
// lock, the lock is released across handler execution, and the mailbox
// is rescheduled with the local-slot tail hint if envelopes remain.
func (fw *Framework) dispatchMailbox(w *workerContext, mb *Mailbox) {
	mb.lock.Lock()
	mb.beginDispatch()
	depth := uint64(mb.count)
	e := mb.pop()
	mb.lock.Unlock()

	w.counters.observeDepth(depth)

	entry := fw.directory.resolve(mb.address.Index(), mb.address.Sequence())
	if entry == nil {
		// The actor is gone; the envelope was accepted before
		// destruction, so it gets exactly one fallback invocation.
		fw.invokeFallback(e)
	} else {
		entry.reconcile()

		ctx := Context{fw: fw, w: w, self: mb.address}
		handled := false
		for i := range entry.handlers {
			h := &entry.handlers[i]
			if h.tag.matches(e.tag) && h.fn(&ctx, e) {
				handled = true
			}
		}
		if !handled {
			if dh := entry.defaultHandler(); dh != nil {
				dh(&ctx, e)
			} else {
				fw.invokeFallback(e)
			}
		}
	}

	w.alloc.release(e)
	fw.pending.Add(-1)
	w.counters.messagesProcessed.Add(1)

	mb.lock.Lock()
	reschedule := mb.endDispatch()
	mb.lock.Unlock()
	if reschedule {
		fw.sched.Push(mb, w)
	}
}
