// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package hive

// applyAffinity is a no-op off Linux; affinity masks are advisory.
func applyAffinity(nodeMask, processorMask uint64) error {
	_, _ = nodeMask, processorMask
	return nil
}
