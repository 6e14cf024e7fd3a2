// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hive

import "code.hybscloud.com/hive/internal"

// pad is cache line padding to prevent false sharing.
type pad [internal.CacheLineSize]byte

// padShort is padding to fill a cache line after an 8-byte field.
type padShort [internal.CacheLineSize - 8]byte
