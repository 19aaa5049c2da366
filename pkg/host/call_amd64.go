// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package host

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"unsafe"
)

func callCode(addr uintptr)

// Execute calls code as a function without arguments and returns when it returns.
// code must be executable memory holding a complete program that preserves
// callee-saved registers and ends with RET.
func Execute(code []byte) error {
	if len(code) == 0 {
		return fmt.Errorf("empty program")
	}
	// The runtime can't stop a thread running foreign code, don't let GC wait for it.
	defer debug.SetGCPercent(debug.SetGCPercent(-1))
	callCode(uintptr(unsafe.Pointer(&code[0])))
	runtime.KeepAlive(code)
	return nil
}
