// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

// managerInterval is the pause between manager passes. Shutdown latency
// is bounded by a small number of these passes plus handler durations.
const managerInterval = 100 * time.Millisecond

// threadManager owns the worker lifecycle. A manager goroutine reads
// the atomic target count every pass and adjusts the live set: stopped
// contexts are restarted (reused) before new ones are allocated, and
// surplus workers are flagged, pulsed awake, and joined.
//
// Workers are real OS-thread-locked goroutines so the affinity masks
// apply to them for their whole lifetime.
type threadManager struct {
	sched    scheduler
	dispatch func(w *workerContext, mb *Mailbox)

	mu       sync.Mutex // guards contexts and the active flags
	contexts []*workerContext
	active   []bool

	target atomix.Int32
	live   atomix.Int32
	peak   atomix.Int32

	nodeMask      uint64
	processorMask uint64

	stop        atomix.Bool
	managerDone chan struct{}
}

func newThreadManager(sched scheduler, dispatch func(*workerContext, *Mailbox), target int, nodeMask, processorMask uint64) *threadManager {
	m := &threadManager{
		sched:         sched,
		dispatch:      dispatch,
		nodeMask:      nodeMask,
		processorMask: processorMask,
		managerDone:   make(chan struct{}),
	}
	m.target.Store(int32(target))
	go m.manage()
	return m
}

// setTarget publishes a new target worker count. The manager converges
// on it within its next passes.
func (m *threadManager) setTarget(n int) {
	m.target.Store(int32(n))
}

// liveCount returns the current live worker count.
func (m *threadManager) liveCount() int {
	return int(m.live.Load())
}

// peakCount returns the maximum live worker count ever observed.
func (m *threadManager) peakCount() int {
	return int(m.peak.Load())
}

// snapshot folds every worker's counters, live or stopped.
func (m *threadManager) snapshot() CounterSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s CounterSnapshot
	for _, w := range m.contexts {
		s = s.merge(w.counters.snapshot())
	}
	return s
}

// close stops the manager after driving the worker count to zero and
// joining every worker.
func (m *threadManager) close() {
	m.target.Store(0)
	m.stop.StoreRelease(true)
	<-m.managerDone
}

func (m *threadManager) manage() {
	defer close(m.managerDone)
	for {
		m.adjust()
		if m.stop.LoadAcquire() && m.live.Load() == 0 {
			return
		}
		time.Sleep(managerInterval)
	}
}

// adjust converges the live set on the target: restart or allocate
// workers while short, stop and join one surplus worker at a time while
// over.
func (m *threadManager) adjust() {
	for {
		target := int(m.target.Load())
		live := int(m.live.Load())

		switch {
		case live < target:
			m.startOne()
		case live > target:
			if !m.stopOne() {
				return
			}
		default:
			return
		}
	}
}

func (m *threadManager) startOne() {
	m.mu.Lock()
	var w *workerContext
	for i, c := range m.contexts {
		if !m.active[i] {
			w = c
			w.joined = make(chan struct{})
			m.active[i] = true
			break
		}
	}
	if w == nil {
		w = newWorkerContext()
		m.contexts = append(m.contexts, w)
		m.active = append(m.active, true)
	}
	w.running.Store(true)
	live := m.live.Add(1)
	if live > m.peak.Load() {
		m.peak.Store(live)
	}
	m.mu.Unlock()

	go m.run(w)
}

func (m *threadManager) stopOne() bool {
	m.mu.Lock()
	var w *workerContext
	for i, c := range m.contexts {
		if m.active[i] {
			w = c
			m.active[i] = false
			break
		}
	}
	m.mu.Unlock()
	if w == nil {
		return false
	}

	w.running.Store(false)
	m.sched.WakeAll()
	<-w.joined
	return true
}

// run is one worker's loop on its own OS thread.
func (m *threadManager) run(w *workerContext) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	_ = applyAffinity(m.nodeMask, m.processorMask)

	m.sched.Initialize(w)
	for w.running.Load() {
		if mb := m.sched.Pop(w); mb != nil {
			m.dispatch(w, mb)
		}
	}
	// A mailbox stranded in the local slot would be lost with this
	// worker; promote it so a peer picks it up.
	if mb := w.takeLocal(); mb != nil {
		m.sched.Push(mb, nil)
	}
	m.sched.Teardown(w)

	m.live.Add(-1)
	close(w.joined)
}
