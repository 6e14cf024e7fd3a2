// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// spinLock is a test-and-test-and-set spinlock.
//
// Intended for critical sections of a handful of instructions: mailbox
// queue operations and work-queue pointer swaps. Never hold it across
// handler execution or any blocking call.
type spinLock struct {
	flag atomix.Bool
}

func (l *spinLock) Lock() {
	sw := spin.Wait{}
	for {
		if !l.flag.LoadRelaxed() && l.flag.CompareAndSwapAcqRel(false, true) {
			return
		}
		sw.Once()
	}
}

// TryLock acquires the lock without spinning.
func (l *spinLock) TryLock() bool {
	return !l.flag.LoadRelaxed() && l.flag.CompareAndSwapAcqRel(false, true)
}

func (l *spinLock) Unlock() {
	l.flag.StoreRelease(false)
}
