// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive_test

import (
	"testing"
	"time"

	"code.hybscloud.com/hive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitWorkers polls until fw's live worker count reaches want.
func waitWorkers(t *testing.T, fw *hive.Framework, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for fw.Concurrency() != want {
		if time.Now().After(deadline) {
			t.Fatalf("worker count: got %d, want %d", fw.Concurrency(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConcurrencyScaling(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 4))
	require.NoError(t, err)
	defer fw.Close()

	waitWorkers(t, fw, 4)

	fw.SetConcurrency(1)
	waitWorkers(t, fw, 1)

	fw.SetConcurrency(4)
	waitWorkers(t, fw, 4)

	// Requests outside the bounds clamp.
	fw.SetConcurrency(100)
	waitWorkers(t, fw, 4)
	fw.SetConcurrency(0)
	waitWorkers(t, fw, 1)

	assert.Equal(t, 4, fw.PeakConcurrency())
}

func TestManagerReusesWorkerContexts(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 3))
	require.NoError(t, err)
	defer fw.Close()

	waitWorkers(t, fw, 3)
	for range 3 {
		fw.SetConcurrency(1)
		waitWorkers(t, fw, 1)
		fw.SetConcurrency(3)
		waitWorkers(t, fw, 3)
	}

	// Stopped contexts are restarted, not reallocated: the context
	// list never grows past the maximum concurrency.
	assert.LessOrEqual(t, len(fw.WorkerCounters()), 3)
}

func TestWorkersSurviveScalingUnderLoad(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().YieldStrategy(hive.YieldPolite).Threads(1, 4))
	require.NoError(t, err)
	defer fw.Close()

	actor, err := fw.CreateActor()
	require.NoError(t, err)

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	const n = 5000
	processed := make(chan struct{})
	var count int
	_, err = hive.Register(fw, actor, func(ctx *hive.Context, from hive.Address, _ uint32) bool {
		// Single actor: at most one dispatch at a time, no lock needed.
		count++
		if count == n {
			close(processed)
		}
		return true
	})
	require.NoError(t, err)

	go func() {
		for i := range n {
			_ = fw.Send(hive.AddressInvalid, actor, uint32(i))
		}
	}()
	fw.SetConcurrency(1)
	fw.SetConcurrency(4)

	select {
	case <-processed:
	case <-time.After(30 * time.Second):
		t.Fatal("messages lost while scaling the worker pool")
	}
	fw.Close()
	assert.Equal(t, n, count)
}

func TestCloseIsPromptAndIdempotent(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 2))
	require.NoError(t, err)

	start := time.Now()
	fw.Close()
	fw.Close()
	assert.Less(t, time.Since(start), 5*time.Second, "blocking workers were not pulsed awake")
	assert.Equal(t, 0, fw.Concurrency())
}

func TestReceiverWaitBlocks(t *testing.T) {
	fw, err := hive.NewFramework(hive.New().Threads(1, 1))
	require.NoError(t, err)
	defer fw.Close()

	r, err := hive.NewReceiver()
	require.NoError(t, err)
	defer r.Close()

	got := make(chan any, 1)
	go func() {
		msg, _ := r.Wait()
		got <- msg
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, fw.Send(hive.AddressInvalid, r.Address(), uint32(9)))

	select {
	case msg := <-got:
		assert.Equal(t, uint32(9), msg)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not wake on delivery")
	}
}
