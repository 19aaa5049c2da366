// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build !linux

package host

import (
	"fmt"
	"runtime"
)

func BindCPU(cpu int) error {
	return fmt.Errorf("binding to cpu %v on %v: %w", cpu, runtime.GOOS, ErrNotSupported)
}

func Affinity() ([]int, error) {
	return nil, ErrNotSupported
}
