// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
)

// frameworkTable is the process-wide registry that lets a send resolve
// an address owned by another framework in the same process. Framework
// id 0 is reserved for receivers.
var frameworkTable struct {
	mu    sync.Mutex
	slots [1 << 8]atomic.Pointer[Framework]
}

func registerFramework(fw *Framework) (uint8, error) {
	frameworkTable.mu.Lock()
	defer frameworkTable.mu.Unlock()
	for id := 1; id < len(frameworkTable.slots); id++ {
		if frameworkTable.slots[id].Load() == nil {
			frameworkTable.slots[id].Store(fw)
			return uint8(id), nil
		}
	}
	return 0, ErrCapacityExhausted
}

func deregisterFramework(id uint8) {
	frameworkTable.mu.Lock()
	frameworkTable.slots[id].Store(nil)
	frameworkTable.mu.Unlock()
}

func lookupFramework(id uint8) *Framework {
	if id == 0 {
		return nil
	}
	return frameworkTable.slots[id].Load()
}

// Framework owns a directory of actors, a scheduler, and a worker pool.
//
// Multiple frameworks may coexist in one process; addresses route
// between them transparently (a send to another framework's actor takes
// a slow path through the process framework registry).
type Framework struct {
	id   uint8
	opts Options

	directory *pagedPool[actorEntry]
	sched     scheduler
	mgr       *threadManager

	fallback atomic.Pointer[FallbackHandlerFunc]
	shared   *sharedMsgAlloc

	// pending counts envelopes pushed to mailboxes and not yet
	// dispatched; zero with no in-flight sends means quiescent.
	pending atomix.Int64

	closed atomix.Bool
}

// NewFramework creates a framework from the builder's options. A nil
// builder means defaults. The worker pool starts at the configured
// maximum thread count.
func NewFramework(b *Builder) (*Framework, error) {
	opts := resolveOptions(b)

	var sched scheduler
	if opts.yieldStrategy == YieldBlocking {
		sched = newBlockScheduler()
	} else {
		sched = newSpinScheduler(opts.yieldStrategy)
	}

	fw := &Framework{
		opts:      opts,
		directory: newPagedPool[actorEntry](opts.maxActors),
		sched:     sched,
		shared:    newSharedMsgAlloc(processAllocator()),
	}
	if opts.fallback != nil {
		fn := opts.fallback
		fw.fallback.Store(&fn)
	}

	id, err := registerFramework(fw)
	if err != nil {
		return nil, err
	}
	fw.id = id
	fw.mgr = newThreadManager(sched, fw.dispatchMailbox, opts.threadCountMax, opts.nodeMask, opts.processorMask)
	return fw, nil
}

// Close drains every mailbox, stops the workers, and deregisters the
// framework. Messages enqueued before Close are dispatched before the
// workers exit.
func (fw *Framework) Close() {
	if !fw.closed.CompareAndSwapAcqRel(false, true) {
		return
	}
	// Workers may not have started yet; a positive target means the
	// manager will start them, so keep waiting.
	for fw.pending.Load() > 0 && (fw.mgr.liveCount() > 0 || fw.mgr.target.Load() > 0) {
		time.Sleep(time.Millisecond)
	}
	fw.mgr.close()
	deregisterFramework(fw.id)
	fw.shared.clear()
}

// CreateActor allocates a directory slot with a fresh mailbox and
// returns its address. Returns ErrCapacityExhausted when the directory
// is full.
func (fw *Framework) CreateActor() (Address, error) {
	if fw.closed.LoadAcquire() {
		return AddressInvalid, ErrCapacityExhausted
	}
	entry := &actorEntry{fw: fw}
	index, sequence, err := fw.directory.allocate(entry)
	if err != nil {
		return AddressInvalid, err
	}
	addr := makeAddress(fw.id, false, index, sequence)
	entry.sequence = sequence
	entry.mailbox = newMailbox(addr)
	return addr, nil
}

// DestroyActor frees the actor's directory slot. Returns true only when
// the actor was quiescent: not queued, not dispatching, mailbox empty,
// and not referenced. The slot's next occupant gets an advanced
// sequence, so the destroyed address can never resolve to it.
func (fw *Framework) DestroyActor(addr Address) bool {
	if addr.IsReceiver() || addr.Framework() != fw.id {
		return false
	}
	entry := fw.directory.resolve(addr.Index(), addr.Sequence())
	if entry == nil {
		return false
	}

	mb := entry.mailbox
	freed := false
	fw.directory.mu.Lock()
	// Re-check the generation under the directory mutex, then the
	// quiescence conditions under the mailbox lock. Lock order:
	// directory, then mailbox.
	if fw.directory.resolveLocked(addr.Index(), addr.Sequence()) == entry {
		mb.lock.Lock()
		if mb.idle() && mb.empty() && !entry.referenced.Load() {
			fw.directory.freeLocked(addr.Index())
			freed = true
		}
		mb.lock.Unlock()
	}
	fw.directory.mu.Unlock()
	return freed
}

// Reference marks the actor entry so destruction is inhibited until
// Deref. Returns false when the address does not resolve.
func (fw *Framework) Reference(addr Address) bool {
	entry := fw.resolveEntry(addr)
	if entry == nil {
		return false
	}
	entry.referenced.Store(true)
	return true
}

// Deref clears the reference mark.
func (fw *Framework) Deref(addr Address) {
	if entry := fw.resolveEntry(addr); entry != nil {
		entry.referenced.Store(false)
	}
}

func (fw *Framework) resolveEntry(addr Address) *actorEntry {
	if addr.IsReceiver() || addr.Framework() != fw.id {
		return nil
	}
	return fw.directory.resolve(addr.Index(), addr.Sequence())
}

// ActorCount returns the number of live actors.
func (fw *Framework) ActorCount() int {
	return fw.directory.count()
}

// SetFallbackHandler installs the framework fallback, invoked for
// messages to stale addresses and for delivered messages no handler and
// no default handler took.
func (fw *Framework) SetFallbackHandler(fn FallbackHandlerFunc) {
	if fn == nil {
		fw.fallback.Store(nil)
		return
	}
	fw.fallback.Store(&fn)
}

func (fw *Framework) invokeFallback(e *Envelope) {
	if fn := fw.fallback.Load(); fn != nil {
		(*fn)(e)
	}
}

// Register adds a handler for messages of type M to the actor at addr.
// Registration may be called from within a handler of the same actor;
// the effect is deferred to between dispatches.
func Register[M any](fw *Framework, addr Address, fn func(ctx *Context, from Address, msg M) bool) (HandlerID, error) {
	entry := fw.resolveEntry(addr)
	if entry == nil {
		return 0, ErrAddressStale
	}
	id := entry.addHandler(tagFor[M](), func(ctx *Context, e *Envelope) bool {
		msg, ok := e.payload.(M)
		if !ok {
			return false
		}
		return fn(ctx, e.from, msg)
	})
	return id, nil
}

// Deregister removes a handler registration. A handler deregistered
// during dispatch still runs for the envelope being dispatched; it is
// gone from the next dispatch on.
func Deregister(fw *Framework, addr Address, id HandlerID) error {
	entry := fw.resolveEntry(addr)
	if entry == nil {
		return ErrAddressStale
	}
	if !entry.removeHandler(id) {
		return ErrAddressStale
	}
	return nil
}

// SetDefaultHandler installs the actor's default handler, invoked when
// no registered handler handles an envelope.
func (fw *Framework) SetDefaultHandler(addr Address, fn DefaultHandlerFunc) error {
	entry := fw.resolveEntry(addr)
	if entry == nil {
		return ErrAddressStale
	}
	entry.setDefault(fn)
	return nil
}

// Send constructs an envelope for payload and delivers it to the actor
// or receiver at to. Callers outside handlers allocate from the shared
// context; handlers should prefer Context.Send, which uses the calling
// worker's private allocator and the local-slot fast path.
func (fw *Framework) Send(from, to Address, payload any) error {
	e := fw.shared.newEnvelope(from, to, payload)
	if e == nil {
		return ErrAllocationFailure
	}
	return fw.deliver(nil, e)
}

// SendData copies data into a cache-allocated block and delivers it as
// a []byte message. The block is valid only during handler invocation.
func (fw *Framework) SendData(from, to Address, data []byte) error {
	e := fw.shared.newDataEnvelope(from, to, data)
	if e == nil {
		return ErrAllocationFailure
	}
	return fw.deliver(nil, e)
}

// deliver routes one envelope per the delivery rules: receivers get a
// direct push; actors get a mailbox push that schedules the mailbox
// only on the empty→non-empty edge; addresses of other frameworks take
// the slow path through the process registry. On a stale address the
// envelope goes to the fallback handler exactly once, is freed, and the
// send reports ErrAddressStale.
func (fw *Framework) deliver(w *workerContext, e *Envelope) error {
	to := e.to

	if to.IsReceiver() {
		r := receiverPool().resolve(to.Index(), to.Sequence())
		if r == nil {
			return fw.undeliverable(w, e)
		}
		r.push(e)
		return nil
	}

	target := fw
	if to.Framework() != fw.id {
		target = lookupFramework(to.Framework())
		if target == nil {
			return fw.undeliverable(w, e)
		}
		return target.deliverSlow(e)
	}

	entry := target.directory.resolve(to.Index(), to.Sequence())
	if entry == nil {
		return fw.undeliverable(w, e)
	}

	mb := entry.mailbox
	mb.lock.Lock()
	// The entry may have been destroyed between resolve and lock;
	// destruction holds this lock, so one re-check settles it.
	if target.directory.resolve(to.Index(), to.Sequence()) != entry {
		mb.lock.Unlock()
		return fw.undeliverable(w, e)
	}
	schedule := mb.pushAndPlan(e)
	target.pending.Add(1)
	mb.lock.Unlock()

	if schedule {
		target.sched.Push(mb, w)
	}
	return nil
}

// deliverSlow is the cross-framework delivery path: the mailbox is
// pushed on the owning framework's scheduler with no local hint.
//
//go:noinline
func (fw *Framework) deliverSlow(e *Envelope) error {
	return fw.deliver(nil, e)
}

// undeliverable routes e through the fallback and reclaims it.
func (fw *Framework) undeliverable(w *workerContext, e *Envelope) error {
	fw.invokeFallback(e)
	if w != nil {
		w.alloc.release(e)
	} else {
		fw.shared.release(e)
	}
	return ErrAddressStale
}

// SetConcurrency sets the target worker count, clamped to the
// configured bounds. The manager converges within its next passes.
func (fw *Framework) SetConcurrency(n int) {
	if n < fw.opts.threadCountMin {
		n = fw.opts.threadCountMin
	}
	if n > fw.opts.threadCountMax {
		n = fw.opts.threadCountMax
	}
	fw.mgr.setTarget(n)
}

// Concurrency returns the live worker count.
func (fw *Framework) Concurrency() int {
	return fw.mgr.liveCount()
}

// PeakConcurrency returns the maximum live worker count observed.
func (fw *Framework) PeakConcurrency() int {
	return fw.mgr.peakCount()
}

// Counters returns the scheduler counters merged across all workers.
func (fw *Framework) Counters() CounterSnapshot {
	return fw.mgr.snapshot()
}

// WorkerCounters returns one snapshot per worker context, live or
// stopped.
func (fw *Framework) WorkerCounters() []CounterSnapshot {
	fw.mgr.mu.Lock()
	defer fw.mgr.mu.Unlock()
	out := make([]CounterSnapshot, 0, len(fw.mgr.contexts))
	for _, w := range fw.mgr.contexts {
		out = append(out, w.counters.snapshot())
	}
	return out
}
