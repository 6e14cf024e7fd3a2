// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "runtime"

// defaultMaxActors is the actor directory capacity unless the builder
// overrides it.
const defaultMaxActors = 1 << 16

// Options configures a framework. Populate through the Builder.
type Options struct {
	yieldStrategy YieldStrategy

	threadCountMin int
	threadCountMax int

	nodeMask      uint64
	processorMask uint64

	maxActors int

	fallback FallbackHandlerFunc
}

// Builder creates frameworks with fluent configuration.
//
// Example:
//
//	fw, err := hive.NewFramework(hive.New().
//	    YieldStrategy(hive.YieldPolite).
//	    Threads(2, 8).
//	    MaxActors(1024))
type Builder struct {
	opts Options
}

// New creates a framework builder with defaults: the BLOCKING yield
// strategy, worker bounds [1, GOMAXPROCS], no affinity masks, and a
// directory of 65536 actors.
func New() *Builder {
	return &Builder{opts: Options{
		yieldStrategy:  YieldBlocking,
		threadCountMin: 1,
		threadCountMax: runtime.GOMAXPROCS(0),
		maxActors:      defaultMaxActors,
	}}
}

// YieldStrategy selects the scheduler variant and its empty-queue
// behavior. YieldBlocking selects the blocking scheduler; the other
// strategies select the non-blocking scheduler.
func (b *Builder) YieldStrategy(s YieldStrategy) *Builder {
	if s < YieldAggressive || s > YieldBlocking {
		panic("hive: unknown yield strategy")
	}
	b.opts.yieldStrategy = s
	return b
}

// Threads bounds the worker count maintained by the manager. The pool
// starts at max; SetConcurrency clamps into [min, max].
func (b *Builder) Threads(min, max int) *Builder {
	if min < 0 || max < 1 || min > max {
		panic("hive: thread bounds must satisfy 0 <= min <= max, max >= 1")
	}
	b.opts.threadCountMin = min
	b.opts.threadCountMax = max
	return b
}

// NodeMask sets the NUMA node affinity bitmask applied to workers.
// Bit i selects node i.
func (b *Builder) NodeMask(mask uint64) *Builder {
	b.opts.nodeMask = mask
	return b
}

// ProcessorMask sets the processor affinity bitmask applied to
// workers. Bit i selects CPU i.
func (b *Builder) ProcessorMask(mask uint64) *Builder {
	b.opts.processorMask = mask
	return b
}

// MaxActors caps the actor directory. Creation beyond the cap fails
// with ErrCapacityExhausted.
func (b *Builder) MaxActors(n int) *Builder {
	if n < 1 {
		panic("hive: max actors must be >= 1")
	}
	b.opts.maxActors = n
	return b
}

// Fallback installs the framework fallback handler at construction.
func (b *Builder) Fallback(fn FallbackHandlerFunc) *Builder {
	b.opts.fallback = fn
	return b
}

func resolveOptions(b *Builder) Options {
	if b == nil {
		b = New()
	}
	return b.opts
}
