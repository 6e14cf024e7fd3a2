// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !hivedebug

package hive

// debugEnabled is false in normal builds.
const debugEnabled = false

func assert(bool, string) {}
