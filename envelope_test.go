// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"bytes"
	"testing"
)

func TestMsgAllocEnvelopeReuse(t *testing.T) {
	m := newMsgAlloc(&heapAllocator{})

	from := makeAddress(1, true, 1, 1)
	to := makeAddress(1, false, 2, 1)

	e := m.newEnvelope(from, to, uint32(42))
	if e.From() != from || e.To() != to {
		t.Fatal("envelope addresses mismatch")
	}
	if got, ok := e.Message().(uint32); !ok || got != 42 {
		t.Fatalf("Message: got %v, want uint32(42)", e.Message())
	}

	m.release(e)
	if e.payload != nil {
		t.Fatal("release: payload not destructed")
	}

	e2 := m.newEnvelope(from, to, "x")
	if e2 != e {
		t.Fatal("newEnvelope: free-listed envelope not reused")
	}
}

func TestMsgAllocDataEnvelopeRoundTrip(t *testing.T) {
	inner := &countingAllocator{}
	m := newMsgAlloc(inner)

	data := []byte("hello hive")
	e := m.newDataEnvelope(AddressInvalid, AddressInvalid, data)
	if e == nil {
		t.Fatal("newDataEnvelope: got nil")
	}
	got, ok := e.Message().([]byte)
	if !ok || !bytes.Equal(got, data) {
		t.Fatalf("Message: got %q, want %q", got, data)
	}
	// Block size is recorded rounded to the allocator granularity.
	if e.size != 12 {
		t.Fatalf("recorded size: got %d, want 12", e.size)
	}

	m.release(e)
	m.clear()
	if live := inner.live.Load(); live != 0 {
		t.Fatalf("live blocks after release+clear: got %d, want 0", live)
	}
}

func TestMsgAllocFreeListBound(t *testing.T) {
	m := newMsgAlloc(&heapAllocator{})

	envs := make([]*Envelope, msgAllocMaxFree+8)
	for i := range envs {
		envs[i] = m.newEnvelope(AddressInvalid, AddressInvalid, i)
	}
	for _, e := range envs {
		m.release(e)
	}
	if m.nfree != msgAllocMaxFree {
		t.Fatalf("free list length: got %d, want %d", m.nfree, msgAllocMaxFree)
	}
}

func TestSharedMsgAllocConcurrent(t *testing.T) {
	s := newSharedMsgAlloc(&heapAllocator{})

	done := make(chan struct{})
	for range 4 {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := range 1000 {
				e := s.newEnvelope(AddressInvalid, AddressInvalid, i)
				s.release(e)
			}
		}()
	}
	for range 4 {
		<-done
	}
}
