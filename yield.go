// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"runtime"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// YieldStrategy selects what a worker does when both its local slot and
// the shared queue are empty.
//
//	YieldAggressive  hyperthread pause only; never sleeps
//	YieldStrong      pause first, then yields the processor slice; never sleeps
//	YieldPolite      pause, then yields to any goroutine, then sleeps briefly
//	YieldBlocking    waits on a condition variable until pulsed
//
// The first three run on the non-blocking scheduler. YieldBlocking
// implies the blocking scheduler; its workers consume no CPU while the
// queue is empty but pay a wakeup latency on every burst.
type YieldStrategy int32

const (
	YieldAggressive YieldStrategy = iota
	YieldStrong
	YieldPolite
	YieldBlocking
)

// String returns the strategy name.
func (s YieldStrategy) String() string {
	switch s {
	case YieldAggressive:
		return "AGGRESSIVE"
	case YieldStrong:
		return "STRONG"
	case YieldPolite:
		return "POLITE"
	case YieldBlocking:
		return "BLOCKING"
	}
	return "UNKNOWN"
}

// yieldSpinVisits is how many empty-handed visits stay on the
// hyperthread pause before a strategy escalates.
const yieldSpinVisits = 32

// yieldPolicy is the per-worker backoff state. The counter advances on
// every empty-handed pop and resets on any successful pop, local or
// shared.
type yieldPolicy struct {
	counter uint32
	sw      spin.Wait
	backoff iox.Backoff
}

func (p *yieldPolicy) reset() {
	p.counter = 0
	p.sw = spin.Wait{}
	p.backoff.Reset()
}

// wait applies one round of the strategy's backoff ladder.
func (p *yieldPolicy) wait(s YieldStrategy) {
	visit := p.counter
	p.counter++

	switch s {
	case YieldAggressive:
		p.sw.Once()
	case YieldStrong:
		if visit < yieldSpinVisits {
			p.sw.Once()
			return
		}
		spin.Yield()
	case YieldPolite:
		if visit < yieldSpinVisits {
			p.sw.Once()
			return
		}
		if visit < yieldSpinVisits*4 {
			runtime.Gosched()
			return
		}
		// Adaptive OS-level sleep, bounded to roughly a millisecond.
		p.backoff.Wait()
	}
}
