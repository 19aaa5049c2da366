// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package host contains the platform specific parts of running stress programs:
// CPU pinning, calling generated code and describing the machine.
package host

import (
	"errors"
)

var ErrNotSupported = errors.New("not supported on this platform")
