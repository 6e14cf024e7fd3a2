// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package internal

// CacheLineSize is the conservative cache line size for ARM64.
// Apple silicon uses 128-byte lines; padding to 128 avoids false
// sharing on both 64- and 128-byte-line designs.
const CacheLineSize = 128
