// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build hivedebug

package hive

// debugEnabled is true under the hivedebug build tag. Internal invariant
// checks become fatal panics instead of compiling away.
const debugEnabled = true

// assert panics when cond is false. Compiled out without hivedebug.
func assert(cond bool, msg string) {
	if !cond {
		panic("hive: invariant violated: " + msg)
	}
}
