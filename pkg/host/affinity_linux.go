// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package host

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Size of the kernel cpu_set_t in bits.
const maxCPUs = 1024

// BindCPU pins the calling goroutine to its OS thread and the thread to the given CPU.
// The affinity is read back, the call fails unless the mask contains exactly that CPU.
// The goroutine stays locked to the thread for the rest of its life.
func BindCPU(cpu int) error {
	if cpu < 0 || cpu >= maxCPUs {
		return fmt.Errorf("bad cpu %v", cpu)
	}
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("failed to bind to cpu %v: %w", cpu, err)
	}
	var got unix.CPUSet
	if err := unix.SchedGetaffinity(0, &got); err != nil {
		return fmt.Errorf("failed to verify affinity: %w", err)
	}
	if got.Count() != 1 || !got.IsSet(cpu) {
		return fmt.Errorf("affinity is %v cpus after binding to cpu %v", got.Count(), cpu)
	}
	return nil
}

// Affinity returns CPUs the calling thread may run on.
func Affinity() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for cpu := 0; cpu < maxCPUs; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}
