// Copyright 2022 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package testutil holds helpers for randomized tests of generated programs.
package testutil

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// IterCount is the number of iterations of randomized tests.
// SYZ_ITERS overrides it, -short divides it by 10.
func IterCount() int {
	iters := 1000
	if v, err := strconv.Atoi(os.Getenv("SYZ_ITERS")); err == nil && v > 0 {
		iters = v
	}
	if testing.Short() {
		iters = max(iters/10, 1)
	}
	return iters
}

// Seed is SYZ_SEED if set, 0 on CI and the current time otherwise.
// It's logged so that a failure can be reproduced with SYZ_SEED.
func Seed(t testing.TB) int64 {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("SYZ_SEED"); fixed != "" {
		var err error
		if seed, err = strconv.ParseInt(fixed, 0, 64); err != nil {
			t.Fatalf("bad SYZ_SEED %q: %v", fixed, err)
		}
	} else if os.Getenv("CI") != "" {
		seed = 0
	}
	t.Logf("seed=%v", seed)
	return seed
}

func RandSource(t testing.TB) rand.Source {
	return rand.NewSource(Seed(t))
}

// Writer forwards everything written to the test log, e.g. output of worker processes.
type Writer struct {
	testing.TB
}

func (w *Writer) Write(data []byte) (int, error) {
	w.TB.Logf("%s", data)
	return len(data), nil
}
