// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "unsafe"

const (
	// cachePoolCount is the number of size-class pools. Class k caches
	// blocks of size 4*(k+1); the largest cached size is 128 bytes.
	cachePoolCount = 32

	// cacheMaxBlocks bounds the free blocks held per size class.
	cacheMaxBlocks = 16

	cacheMinSize = 4
	cacheMaxSize = cachePoolCount * 4
)

// cacheAlloc is a caching allocator layered on the process facade.
//
// It keeps per-size-class pools of small free blocks, keyed by
// class = size/4 − 1. Sizes must be multiples of 4, minimum 4; other
// sizes and sizes above the largest class defer to the wrapped
// allocator, as does any free without a size hint.
//
// A cacheAlloc is not safe for concurrent use. Each worker owns a
// private instance on its envelope hot path; the shared instance used
// by external senders is guarded by its own spinlock.
type cacheAlloc struct {
	pools [cachePoolCount][]cachedBlock
	inner Allocator
}

type cachedBlock []byte

func newCacheAlloc(inner Allocator) *cacheAlloc {
	return &cacheAlloc{inner: inner}
}

// sizeClass maps a block size to its pool index, or -1 when the size is
// not cacheable.
func sizeClass(size int) int {
	if size < cacheMinSize || size > cacheMaxSize || size&3 != 0 {
		return -1
	}
	return size/4 - 1
}

// Allocate returns a block of at least size bytes.
func (c *cacheAlloc) Allocate(size int) []byte {
	return c.AllocateAligned(size, 1)
}

// AllocateAligned returns a block of at least size bytes aligned to
// align. The matching size-class pool is scanned for a block with the
// right alignment before deferring to the wrapped allocator.
func (c *cacheAlloc) AllocateAligned(size, align int) []byte {
	if k := sizeClass(size); k >= 0 {
		pool := c.pools[k]
		for i, b := range pool {
			if uintptr(unsafe.Pointer(unsafe.SliceData(b)))&uintptr(align-1) == 0 {
				last := len(pool) - 1
				pool[i] = pool[last]
				c.pools[k] = pool[:last]
				return b
			}
		}
	}
	return c.inner.AllocateAligned(size, align)
}

// FreeSized returns a block to its size-class pool, deferring to the
// wrapped allocator when the pool is full or the size is not cacheable.
func (c *cacheAlloc) FreeSized(block []byte, size int) {
	if block == nil {
		return
	}
	if k := sizeClass(size); k >= 0 && len(c.pools[k]) < cacheMaxBlocks {
		c.pools[k] = append(c.pools[k], block)
		return
	}
	c.inner.FreeSized(block, size)
}

// Free releases a block of unknown size. Caching requires size
// knowledge, so this always defers to the wrapped allocator.
func (c *cacheAlloc) Free(block []byte) {
	c.inner.Free(block)
}

// Clear drains every pool back to the wrapped allocator.
func (c *cacheAlloc) Clear() {
	for k := range c.pools {
		for _, b := range c.pools[k] {
			c.inner.FreeSized(b, (k+1)*4)
		}
		c.pools[k] = nil
	}
}
