// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "code.hybscloud.com/atomix"

// HandlerID identifies one handler registration on one actor.
type HandlerID uint64

// HandlerFunc is the bound form of a message handler. It returns true
// when the message was handled; if no matching handler returns true the
// dispatcher falls through to the actor default handler, then to the
// framework fallback.
type HandlerFunc func(ctx *Context, e *Envelope) bool

// DefaultHandlerFunc receives messages no registered handler handled.
type DefaultHandlerFunc func(ctx *Context, e *Envelope)

// FallbackHandlerFunc receives messages that could not be delivered at
// all: unhandled messages of actors with no default handler, and
// messages addressed to stale addresses. The envelope is freed by the
// runtime when the fallback returns; it must not be retained.
type FallbackHandlerFunc func(e *Envelope)

// handlerRecord is one registration. dead marks it for removal at the
// next reconciliation; a record deregistered during dispatch still runs
// for the envelope being dispatched.
type handlerRecord struct {
	id   HandlerID
	tag  messageTag
	fn   HandlerFunc
	dead bool
}

// actorEntry is the directory node of one actor: its mailbox, its
// handler list, and its lifecycle bookkeeping.
//
// The live handlers slice is touched only while dispatching (at most
// one dispatch per actor runs at a time). All other mutation goes
// through the pending list and dead marks under the entry lock, with
// handlersDirty telling the dispatcher to reconcile before the next
// envelope.
type actorEntry struct {
	mailbox  *Mailbox
	fw       *Framework
	sequence uint32

	lock          spinLock
	handlers      []handlerRecord
	pending       []handlerRecord
	defaultFn     DefaultHandlerFunc
	nextHandlerID HandlerID

	handlersDirty atomix.Bool
	referenced    atomix.Bool
}

// addHandler queues a registration; it takes effect between dispatches.
func (a *actorEntry) addHandler(tag messageTag, fn HandlerFunc) HandlerID {
	a.lock.Lock()
	a.nextHandlerID++
	id := a.nextHandlerID
	a.pending = append(a.pending, handlerRecord{id: id, tag: tag, fn: fn})
	a.handlersDirty.StoreRelease(true)
	a.lock.Unlock()
	return id
}

// removeHandler queues a deregistration; the record keeps running for
// the envelope currently being dispatched, if any, and is gone from the
// next dispatch on.
func (a *actorEntry) removeHandler(id HandlerID) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	for i := range a.pending {
		if a.pending[i].id == id {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return true
		}
	}
	for i := range a.handlers {
		if a.handlers[i].id == id && !a.handlers[i].dead {
			a.handlers[i].dead = true
			a.handlersDirty.StoreRelease(true)
			return true
		}
	}
	return false
}

// setDefault installs the default handler.
func (a *actorEntry) setDefault(fn DefaultHandlerFunc) {
	a.lock.Lock()
	a.defaultFn = fn
	a.lock.Unlock()
}

func (a *actorEntry) defaultHandler() DefaultHandlerFunc {
	a.lock.Lock()
	fn := a.defaultFn
	a.lock.Unlock()
	return fn
}

// reconcile applies dead marks and pending additions to the live list.
// Called by the dispatcher between envelopes, never during iteration.
func (a *actorEntry) reconcile() {
	if !a.handlersDirty.LoadAcquire() {
		return
	}
	a.lock.Lock()
	a.handlersDirty.StoreRelease(false)

	kept := a.handlers[:0]
	for _, h := range a.handlers {
		if !h.dead {
			kept = append(kept, h)
		}
	}
	a.handlers = append(kept, a.pending...)
	a.pending = nil
	a.lock.Unlock()
}
