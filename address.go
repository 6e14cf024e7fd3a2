// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

// Address is a 64-bit handle identifying a mailbox or a receiver.
//
// An Address is composed of an index selecting a directory slot, a
// generational sequence distinguishing the current occupant of the slot
// from stale prior occupants, a framework id selecting which framework
// in the process owns the slot, and a receiver flag.
//
// Addresses are plain values: cheap to copy, safe to store, safe to send
// across goroutines. A stored Address never dangles — resolving it after
// the addressed entity is destroyed simply fails (sequence mismatch).
//
// Layout:
//
//	bits  0..22  slot index (23 bits)
//	bit   23     receiver flag
//	bits 24..31  framework id (8 bits, zero for receivers)
//	bits 32..63  sequence (32 bits, wraps)
//
// The sequence wraps at 2^32, skipping zero. A stale address can alias a
// live entity only after the same slot has been reused a multiple of
// 2^32−1 times between capture and use.
type Address uint64

const (
	addressIndexBits = 23
	addressIndexMask = 1<<addressIndexBits - 1

	addressReceiverBit = 1 << addressIndexBits

	addressFrameworkShift = 24
	addressFrameworkMask  = 0xff

	addressSequenceShift = 32
)

// AddressInvalid is the zero Address. It never resolves: slot sequences
// start at 1, so a zero sequence matches no live entry.
const AddressInvalid Address = 0

// makeAddress packs the components into an Address.
func makeAddress(framework uint8, receiver bool, index uint32, sequence uint32) Address {
	a := Address(index&addressIndexMask) |
		Address(framework)<<addressFrameworkShift |
		Address(sequence)<<addressSequenceShift
	if receiver {
		a |= addressReceiverBit
	}
	return a
}

// Index returns the directory slot index.
func (a Address) Index() uint32 {
	return uint32(a) & addressIndexMask
}

// Sequence returns the generational sequence.
func (a Address) Sequence() uint32 {
	return uint32(a >> addressSequenceShift)
}

// IsReceiver reports whether the address identifies a receiver rather
// than an actor mailbox.
func (a Address) IsReceiver() bool {
	return a&addressReceiverBit != 0
}

// Framework returns the id of the owning framework. Zero for receivers.
func (a Address) Framework() uint8 {
	return uint8(a>>addressFrameworkShift) & addressFrameworkMask
}

// Valid reports whether the address is non-zero. A valid address may
// still be stale; staleness is only detected at resolve time.
func (a Address) Valid() bool {
	return a != AddressInvalid
}
