// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfiling(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	mem := filepath.Join(dir, "mem.prof")
	stop, err := startProfiling(cpu, mem)
	if err != nil {
		t.Fatal(err)
	}
	stop()
	for _, file := range []string{cpu, mem} {
		st, err := os.Stat(file)
		if err != nil {
			t.Fatal(err)
		}
		if st.Size() == 0 {
			t.Fatalf("%v is empty", file)
		}
	}
	if _, err := startProfiling(filepath.Join(dir, "no", "such", "dir"), ""); err == nil {
		t.Fatalf("bad cpuprofile file did not fail")
	}
}
