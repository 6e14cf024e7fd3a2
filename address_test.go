// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "testing"

func TestAddressPacking(t *testing.T) {
	a := makeAddress(7, false, 12345, 0xdeadbeef)

	if got := a.Framework(); got != 7 {
		t.Fatalf("Framework: got %d, want 7", got)
	}
	if got := a.Index(); got != 12345 {
		t.Fatalf("Index: got %d, want 12345", got)
	}
	if got := a.Sequence(); got != 0xdeadbeef {
		t.Fatalf("Sequence: got %#x, want 0xdeadbeef", got)
	}
	if a.IsReceiver() {
		t.Fatal("IsReceiver: got true, want false")
	}
	if !a.Valid() {
		t.Fatal("Valid: got false, want true")
	}
}

func TestAddressReceiverFlag(t *testing.T) {
	r := makeAddress(0, true, 3, 1)
	if !r.IsReceiver() {
		t.Fatal("IsReceiver: got false, want true")
	}
	if got := r.Index(); got != 3 {
		t.Fatalf("Index: got %d, want 3", got)
	}
	if got := r.Framework(); got != 0 {
		t.Fatalf("Framework: got %d, want 0", got)
	}
}

func TestAddressIndexBounds(t *testing.T) {
	// The receiver flag must survive the maximum index.
	a := makeAddress(255, true, addressIndexMask, ^uint32(0))
	if got := a.Index(); got != addressIndexMask {
		t.Fatalf("Index: got %d, want %d", got, addressIndexMask)
	}
	if !a.IsReceiver() {
		t.Fatal("IsReceiver: got false, want true")
	}
	if got := a.Framework(); got != 255 {
		t.Fatalf("Framework: got %d, want 255", got)
	}
	if got := a.Sequence(); got != ^uint32(0) {
		t.Fatalf("Sequence: got %#x, want %#x", got, ^uint32(0))
	}
}

func TestAddressInvalidNeverResolves(t *testing.T) {
	if AddressInvalid.Valid() {
		t.Fatal("Valid on zero address: got true, want false")
	}
	if got := AddressInvalid.Sequence(); got != 0 {
		t.Fatalf("Sequence: got %d, want 0", got)
	}
}
