// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/hive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvWait waits for one message on r, failing the test after timeout.
func recvWait(t *testing.T, r *hive.Receiver, timeout time.Duration) (any, hive.Address) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		msg, from, err := r.TryReceive()
		if err == nil {
			return msg, from
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for message")
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func TestPingPong(t *testing.T) {
	for _, strategy := range []hive.YieldStrategy{
		hive.YieldAggressive, hive.YieldStrong, hive.YieldPolite, hive.YieldBlocking,
	} {
		t.Run(strategy.String(), func(t *testing.T) {
			fw, err := hive.NewFramework(hive.New().YieldStrategy(strategy).Threads(1, 2))
			require.NoError(t, err)
			defer fw.Close()

			actor, err := fw.CreateActor()
			require.NoError(t, err)

			_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
				return ctx.Send(from, n) == nil
			})
			require.NoError(t, err)

			r, err := hive.NewReceiver()
			require.NoError(t, err)
			defer r.Close()

			require.NoError(t, fw.Send(r.Address(), actor, uint32(42)))

			msg, from := recvWait(t, r, 5*time.Second)
			assert.Equal(t, uint32(42), msg)
			assert.Equal(t, actor, from)
			assert.EqualValues(t, 0, r.Count())
		})
	}
}

func TestBurstThenIdle(t *testing.T) {
	const burst = 1000

	fw, err := hive.NewFramework(hive.New().Threads(1, 4))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	var count atomix.Int64
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		if count.Add(1) == burst {
			_ = ctx.Send(from, "done")
		}
		return true
	})
	require.NoError(t, err)

	for i := range burst {
		require.NoError(t, fw.Send(r.Address(), actor, uint32(i)))
	}

	msg, _ := recvWait(t, r, 10*time.Second)
	assert.Equal(t, "done", msg)
	assert.EqualValues(t, burst, count.Load())
	assert.GreaterOrEqual(t, fw.Counters().MessagesProcessed, uint64(burst))
}

func TestPerSenderFIFO(t *testing.T) {
	const n = 2000

	fw, err := hive.NewFramework(hive.New().Threads(1, 4))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	var mu sync.Mutex
	var got []uint32
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, v uint32) bool {
		mu.Lock()
		got = append(got, v)
		done := len(got) == n
		mu.Unlock()
		if done {
			_ = ctx.Send(from, "done")
		}
		return true
	})
	require.NoError(t, err)

	for i := range n {
		require.NoError(t, fw.Send(r.Address(), actor, uint32(i)))
	}
	recvWait(t, r, 10*time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, n)
	for i, v := range got {
		require.EqualValues(t, i, v, "messages reordered at %d", i)
	}
}

func TestStaleAddress(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 2))
	require.NoError(t, err)
	defer fw.Close()

	fallback := make(chan string, 1)
	fw.SetFallbackHandler(func(e *hive.Envelope) {
		fallback <- e.Message().(string)
	})

	a, err := fw.CreateActor()
	require.NoError(t, err)
	require.True(t, fw.DestroyActor(a))

	// The next create reuses the densest slot; the old address must
	// not resolve to it.
	b, err := fw.CreateActor()
	require.NoError(t, err)
	require.Equal(t, a.Index(), b.Index(), "expected slot reuse for this test")

	var bRan atomix.Bool
	_, err = hive.Register(fw, b, func(ctx *hive.Context, from hive.Address, s string) bool {
		bRan.Store(true)
		return true
	})
	require.NoError(t, err)

	err = fw.Send(hive.AddressInvalid, a, "ghost")
	require.ErrorIs(t, err, hive.ErrAddressStale)
	assert.True(t, hive.IsAddressStale(err))

	select {
	case got := <-fallback:
		assert.Equal(t, "ghost", got)
	case <-time.After(5 * time.Second):
		t.Fatal("fallback handler not invoked")
	}
	assert.False(t, bRan.Load(), "stale address resolved to the slot's new occupant")
}

func TestCapacityExhausted(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1).MaxActors(8))
	require.NoError(t, err)
	defer fw.Close()

	addrs := make([]hive.Address, 8)
	for i := range addrs {
		addrs[i], err = fw.CreateActor()
		require.NoError(t, err)
	}

	_, err = fw.CreateActor()
	require.ErrorIs(t, err, hive.ErrCapacityExhausted)
	assert.True(t, hive.IsCapacityExhausted(err))

	require.True(t, fw.DestroyActor(addrs[3]))
	_, err = fw.CreateActor()
	require.NoError(t, err)
	assert.Equal(t, 8, fw.ActorCount())
}

func TestTailOptimization(t *testing.T) {
	// Single worker so the local-slot path is deterministic.
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	a, err := fw.CreateActor()
	require.NoError(t, err)
	b, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	type kick struct{}
	type selfNote struct{}

	_, err = hive.Register(fw, a, func(ctx *hive.Context, from hive.Address, _ kick) bool {
		// Self first, external last: the handler's last-messaged
		// mailbox (b) takes the local slot, then the dispatcher's
		// tail push reclaims it for a and promotes b to shared.
		_ = ctx.Send(ctx.Self(), selfNote{})
		_ = ctx.Send(b, uint32(7))
		return true
	})
	require.NoError(t, err)
	_, err = hive.Register(fw, a, func(ctx *hive.Context, from hive.Address, _ selfNote) bool {
		return ctx.Send(r.Address(), "self-done") == nil
	})
	require.NoError(t, err)
	_, err = hive.Register(fw, b, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		return ctx.Send(r.Address(), n) == nil
	})
	require.NoError(t, err)

	require.NoError(t, fw.Send(r.Address(), a, kick{}))

	recvWait(t, r, 5*time.Second)
	recvWait(t, r, 5*time.Second)

	c := fw.Counters()
	assert.GreaterOrEqual(t, c.LocalPushes, uint64(2), "local slot never used")
	assert.GreaterOrEqual(t, c.SharedPushes, uint64(1), "no promotion to the shared queue")
}

func TestShutdownDrain(t *testing.T) {
	const n = 10000

	fw, err := hive.NewFramework(hive.New().Threads(1, 4))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	var count atomix.Int64
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		count.Add(1)
		return true
	})
	require.NoError(t, err)

	for i := range n {
		require.NoError(t, fw.Send(hive.AddressInvalid, actor, uint32(i)))
	}

	fw.Close()
	assert.EqualValues(t, n, count.Load(), "messages lost across shutdown")
	assert.Equal(t, 0, fw.Concurrency())
}

func TestUnhandledFallsThrough(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	fallback := make(chan any, 2)
	fw.SetFallbackHandler(func(e *hive.Envelope) {
		fallback <- e.Message()
	})

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	// No handler at all: framework fallback.
	require.NoError(t, fw.Send(hive.AddressInvalid, actor, uint32(1)))
	select {
	case got := <-fallback:
		assert.Equal(t, uint32(1), got)
	case <-time.After(5 * time.Second):
		t.Fatal("fallback not invoked for unhandled message")
	}

	// With a default handler: it wins over the fallback.
	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, fw.SetDefaultHandler(actor, func(ctx *hive.Context, e *hive.Envelope) {
		_ = ctx.Send(r.Address(), e.Message())
	}))
	require.NoError(t, fw.Send(hive.AddressInvalid, actor, uint32(2)))

	msg, _ := recvWait(t, r, 5*time.Second)
	assert.Equal(t, uint32(2), msg)
	select {
	case m := <-fallback:
		t.Fatalf("fallback invoked despite default handler: %v", m)
	default:
	}
}

func TestDeregisterDuringDispatch(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	var runs atomix.Int32
	var id hive.HandlerID
	id, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		runs.Add(1)
		// Deregistering mid-dispatch: this invocation completes, the
		// next dispatch must not see the handler.
		if derr := hive.Deregister(fw, actor, id); derr != nil {
			t.Errorf("Deregister: %v", derr)
		}
		return true
	})
	require.NoError(t, err)
	require.NoError(t, fw.SetDefaultHandler(actor, func(ctx *hive.Context, e *hive.Envelope) {
		_ = ctx.Send(r.Address(), "default")
	}))

	require.NoError(t, fw.Send(r.Address(), actor, uint32(1)))
	require.NoError(t, fw.Send(r.Address(), actor, uint32(2)))

	msg, _ := recvWait(t, r, 5*time.Second)
	assert.Equal(t, "default", msg)
	assert.EqualValues(t, 1, runs.Load(), "deregistered handler ran again")
}

func TestRegisterDuringDispatch(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	type second struct{}
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		// The new registration takes effect between dispatches.
		if _, rerr := hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, _ second) bool {
			return ctx.Send(r.Address(), "late") == nil
		}); rerr != nil {
			t.Errorf("Register during dispatch: %v", rerr)
		}
		_ = ctx.Send(ctx.Self(), second{})
		return true
	})
	require.NoError(t, err)

	require.NoError(t, fw.Send(r.Address(), actor, uint32(0)))
	msg, _ := recvWait(t, r, 5*time.Second)
	assert.Equal(t, "late", msg)
}

func TestCreateActorFromHandler(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 2))
	require.NoError(t, err)
	defer fw.Close()

	parent, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	_, err = hive.Register(fw, parent, func(ctx *hive.Context, from hive.Address, _ uint32) bool {
		// Reentrant create: the directory mutex is never held across
		// handler execution, so this cannot self-deadlock.
		child, cerr := ctx.Framework().CreateActor()
		if cerr != nil {
			t.Errorf("CreateActor from handler: %v", cerr)
			return true
		}
		if _, cerr = hive.Register(ctx.Framework(), child, func(ctx *hive.Context, from hive.Address, s string) bool {
			return ctx.Send(r.Address(), s) == nil
		}); cerr != nil {
			t.Errorf("Register from handler: %v", cerr)
			return true
		}
		return ctx.Send(child, "hello child") == nil
	})
	require.NoError(t, err)

	require.NoError(t, fw.Send(r.Address(), parent, uint32(1)))
	msg, _ := recvWait(t, r, 5*time.Second)
	assert.Equal(t, "hello child", msg)
}

func TestCrossFrameworkSend(t *testing.T) {
	fw1, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw1.Close()

	fw2, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw2.Close()

	actor2, err := fw2.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	_, err = hive.Register(fw2, actor2, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		return ctx.Send(from, n*2) == nil
	})
	require.NoError(t, err)

	// The send enters through fw1 but the address belongs to fw2.
	require.NoError(t, fw1.Send(r.Address(), actor2, uint32(21)))
	msg, _ := recvWait(t, r, 5*time.Second)
	assert.Equal(t, uint32(42), msg)
}

func TestSendData(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, data []byte) bool {
		// The block is valid only during dispatch; reply with a copy.
		return ctx.Send(from, string(data)) == nil
	})
	require.NoError(t, err)

	require.NoError(t, fw.SendData(r.Address(), actor, []byte("payload")))
	msg, _ := recvWait(t, r, 5*time.Second)
	assert.Equal(t, "payload", msg)
}

func TestAtMostOneDispatchPerActor(t *testing.T) {
	const (
		senders = 4
		perSend = 500
	)

	fw, err := hive.NewFramework(hive.New().Threads(2, 4))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	var inDispatch atomix.Int32
	var overlap atomix.Bool
	var count atomix.Int64
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		if inDispatch.Add(1) != 1 {
			overlap.Store(true)
		}
		count.Add(1)
		inDispatch.Add(-1)
		return true
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perSend {
				if serr := fw.Send(hive.AddressInvalid, actor, uint32(i)); serr != nil {
					t.Errorf("Send: %v", serr)
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(10 * time.Second)
	for count.Load() < int64(senders*perSend) {
		if time.Now().After(deadline) {
			t.Fatalf("processed %d of %d", count.Load(), senders*perSend)
		}
		time.Sleep(time.Millisecond)
	}
	assert.False(t, overlap.Load(), "two handlers ran concurrently for one actor")
}

func TestDestroyRefusesBusyActor(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, n uint32) bool {
		close(entered)
		<-release
		return true
	})
	require.NoError(t, err)

	require.NoError(t, fw.Send(hive.AddressInvalid, actor, uint32(1)))
	<-entered

	assert.False(t, fw.DestroyActor(actor), "destroyed an actor mid-dispatch")
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for !fw.DestroyActor(actor) {
		if time.Now().After(deadline) {
			t.Fatal("quiescent actor never became destroyable")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReferenceInhibitsDestroy(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	require.True(t, fw.Reference(actor))
	assert.False(t, fw.DestroyActor(actor), "destroyed a referenced actor")

	fw.Deref(actor)
	assert.True(t, fw.DestroyActor(actor))
}

func TestReceiverDirectDelivery(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	// Receiver delivery bypasses the scheduler entirely.
	for i := range 300 {
		require.NoError(t, fw.Send(hive.AddressInvalid, r.Address(), uint32(i)))
	}
	for i := range 300 {
		msg, _ := recvWait(t, r, 5*time.Second)
		require.EqualValues(t, i, msg, "receiver messages reordered")
	}

	r.Close()
	err = fw.Send(hive.AddressInvalid, r.Address(), uint32(0))
	require.ErrorIs(t, err, hive.ErrAddressStale)
}
