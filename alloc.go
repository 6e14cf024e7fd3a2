// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Allocator is the single injection point all runtime components acquire
// raw message memory through.
//
// Implementations must be safe for concurrent use. A nil return from
// Allocate or AllocateAligned signals allocation failure; the runtime
// surfaces it to the sender as ErrAllocationFailure with no partial
// state.
//
// The size-hinted FreeSized path is required: the caching allocator can
// only recycle a block into a size-class pool when it knows the size.
type Allocator interface {
	// Allocate returns a block of at least size bytes, or nil.
	Allocate(size int) []byte

	// AllocateAligned returns a block of at least size bytes whose first
	// byte is aligned to align (a power of 2), or nil.
	AllocateAligned(size, align int) []byte

	// Free releases a block whose size is unknown to the caller.
	Free(block []byte)

	// FreeSized releases a block obtained with the given size hint.
	FreeSized(block []byte, size int)
}

// heapAllocator is the built-in Allocator over the Go heap. Free paths
// are no-ops; the garbage collector reclaims released blocks.
type heapAllocator struct {
	outstanding atomix.Int64 // live blocks, for leak checks in tests
}

func (a *heapAllocator) Allocate(size int) []byte {
	if size < 0 {
		return nil
	}
	a.outstanding.Add(1)
	return make([]byte, size)
}

func (a *heapAllocator) AllocateAligned(size, align int) []byte {
	if size < 0 || align <= 0 || align&(align-1) != 0 {
		return nil
	}
	a.outstanding.Add(1)
	raw := make([]byte, size+align-1)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(raw))) & uintptr(align-1)); rem != 0 {
		off = align - rem
	}
	return raw[off : off+size : off+size]
}

func (a *heapAllocator) Free(block []byte) {
	if block != nil {
		a.outstanding.Add(-1)
	}
}

func (a *heapAllocator) FreeSized(block []byte, _ int) {
	a.Free(block)
}

// Outstanding returns the number of live blocks.
func (a *heapAllocator) Outstanding() int64 {
	return a.outstanding.Load()
}

// globalAllocator is the process-wide allocator facade. Set at most once
// before any framework or receiver exists; defaults to the Go heap.
var globalAllocator struct {
	alloc Allocator
	set   atomix.Bool
	used  atomix.Bool
}

// SetAllocator installs the process-wide allocator facade.
//
// Must be called at most once, before any framework or receiver is
// created. Changing the facade after the runtime has handed out memory
// is unsafe and panics.
func SetAllocator(a Allocator) {
	if a == nil {
		panic("hive: nil allocator")
	}
	if globalAllocator.used.LoadAcquire() {
		panic("hive: SetAllocator after first use")
	}
	if !globalAllocator.set.CompareAndSwapAcqRel(false, true) {
		panic("hive: SetAllocator called twice")
	}
	globalAllocator.alloc = a
}

// ResetAllocator tears the facade down to the built-in heap allocator.
// Only safe when every framework and receiver has been closed; intended
// for tests.
func ResetAllocator() {
	globalAllocator.alloc = nil
	globalAllocator.set.StoreRelease(false)
	globalAllocator.used.StoreRelease(false)
}

var builtinHeap heapAllocator

// processAllocator returns the installed facade, defaulting to the Go
// heap, and latches it against later replacement.
func processAllocator() Allocator {
	globalAllocator.used.StoreRelease(true)
	if globalAllocator.set.LoadAcquire() {
		return globalAllocator.alloc
	}
	return &builtinHeap
}
