// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrCapacityExhausted indicates a directory has no free slot.
//
// Returned by actor and receiver creation when the configured capacity
// (Builder.MaxActors, SetMaxReceivers) is fully allocated. Destroying an entity
// frees its slot; creation can then be retried.
var ErrCapacityExhausted = errors.New("hive: capacity exhausted")

// ErrAddressStale indicates a destination address no longer resolves.
//
// The addressed slot has been freed, or freed and reused by a different
// entity (the generational sequence no longer matches). A send failing
// with ErrAddressStale has already routed the envelope through the
// framework fallback handler; the sender holds no cleanup obligation.
var ErrAddressStale = errors.New("hive: address stale")

// ErrAllocationFailure indicates the allocator returned no memory.
//
// A send failing with ErrAllocationFailure leaves no partial state: no
// envelope was constructed and nothing was queued.
var ErrAllocationFailure = errors.New("hive: allocation failure")

// ErrWouldBlock indicates a non-blocking operation cannot proceed
// immediately. It is a control flow signal, not a failure.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsCapacityExhausted reports whether err indicates a full directory.
func IsCapacityExhausted(err error) bool {
	return errors.Is(err, ErrCapacityExhausted)
}

// IsAddressStale reports whether err indicates a stale destination.
func IsAddressStale(err error) bool {
	return errors.Is(err, ErrAddressStale)
}
