// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"sync"
	"testing"
)

func TestWorkQueueFIFO(t *testing.T) {
	var q workQueue

	if !q.empty() {
		t.Fatal("fresh queue: got non-empty")
	}
	if q.pop() != nil {
		t.Fatal("pop on empty: got mailbox, want nil")
	}

	boxes := make([]*Mailbox, 16)
	for i := range boxes {
		boxes[i] = newMailbox(makeAddress(1, false, uint32(i), 1))
		q.push(boxes[i])
	}
	for i := range boxes {
		mb := q.pop()
		if mb != boxes[i] {
			t.Fatalf("pop(%d): wrong mailbox", i)
		}
		if mb.next != nil {
			t.Fatalf("pop(%d): intrusive link not cleared", i)
		}
	}
	if !q.empty() {
		t.Fatal("drained queue: got non-empty")
	}
}

func TestWorkQueueConcurrent(t *testing.T) {
	var q workQueue

	const (
		pushers = 4
		perPush = 2000
	)
	var wg sync.WaitGroup
	for range pushers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perPush {
				q.push(newMailbox(makeAddress(1, false, uint32(i), 1)))
			}
		}()
	}

	popped := 0
	donePush := make(chan struct{})
	go func() { wg.Wait(); close(donePush) }()

	for {
		if q.pop() != nil {
			popped++
			continue
		}
		select {
		case <-donePush:
			for q.pop() != nil {
				popped++
			}
			if popped != pushers*perPush {
				t.Errorf("popped %d, want %d", popped, pushers*perPush)
			}
			return
		default:
		}
	}
}

func TestLocalSlotSingleton(t *testing.T) {
	w := newWorkerContext()

	a := newMailbox(makeAddress(1, false, 0, 1))
	b := newMailbox(makeAddress(1, false, 1, 1))

	if promoted := w.putLocal(a); promoted != nil {
		t.Fatal("first putLocal: got promotion, want none")
	}
	// A second local push promotes the prior occupant.
	if promoted := w.putLocal(b); promoted != a {
		t.Fatal("second putLocal: prior mailbox not promoted")
	}
	if got := w.takeLocal(); got != b {
		t.Fatal("takeLocal: wrong mailbox")
	}
	if w.takeLocal() != nil {
		t.Fatal("takeLocal on empty slot: got mailbox, want nil")
	}
}
