// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build !amd64

package host

import (
	"fmt"
	"runtime"
)

func Execute(code []byte) error {
	return fmt.Errorf("executing x86-64 code on %v: %w", runtime.GOARCH, ErrNotSupported)
}
