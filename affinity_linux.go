// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package hive

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// applyAffinity pins the calling thread to the union of the processors
// named by processorMask and the processors of the NUMA nodes named by
// nodeMask. Bit i of processorMask is CPU i; bit i of nodeMask is node
// i, expanded through sysfs. A zero mask pair leaves the thread
// unpinned.
//
// Callers hold runtime.LockOSThread for the lifetime of the pin.
func applyAffinity(nodeMask, processorMask uint64) error {
	var set unix.CPUSet
	pinned := false

	for cpu := 0; cpu < 64; cpu++ {
		if processorMask&(1<<cpu) != 0 {
			set.Set(cpu)
			pinned = true
		}
	}

	for node := 0; node < 64; node++ {
		if nodeMask&(1<<node) == 0 {
			continue
		}
		for _, cpu := range nodeCPUs(node) {
			set.Set(cpu)
			pinned = true
		}
	}

	if !pinned {
		return nil
	}
	return unix.SchedSetaffinity(0, &set)
}

// nodeCPUs returns the CPUs of one NUMA node per sysfs, or nothing when
// the node does not exist.
func nodeCPUs(node int) []int {
	raw, err := os.ReadFile("/sys/devices/system/node/node" + strconv.Itoa(node) + "/cpulist")
	if err != nil {
		return nil
	}
	return parseCPUList(strings.TrimSpace(string(raw)))
}

// parseCPUList parses the kernel cpulist format: "0-3,8,10-11".
func parseCPUList(s string) []int {
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err1 := strconv.Atoi(lo)
			b, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				continue
			}
			for c := a; c <= b; c++ {
				cpus = append(cpus, c)
			}
			continue
		}
		if c, err := strconv.Atoi(part); err == nil {
			cpus = append(cpus, c)
		}
	}
	return cpus
}
