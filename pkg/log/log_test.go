// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"bytes"
	golog "log"
	"os"
	"testing"
)

func TestVerbosity(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	defer SetOutput(os.Stderr)
	flags := golog.Flags()
	golog.SetFlags(0)
	defer golog.SetFlags(flags)
	SetVerbosity(1)
	defer SetVerbosity(-1)

	Logf(0, "zero %v", 0)
	Logf(1, "one")
	Logf(2, "two")
	if !V(1) || V(2) {
		t.Fatalf("bad V")
	}
	if got, want := buf.String(), "zero 0\none\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrefix(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	defer SetOutput(os.Stderr)
	flags := golog.Flags()
	golog.SetFlags(0)
	defer golog.SetFlags(flags)
	SetPrefix("T3: ")
	defer SetPrefix("")
	Logf(0, "instructions generated: %v", 10)
	VerboseWriter(0).Write([]byte("from writer"))
	if got, want := buf.String(), "T3: instructions generated: 10\nT3: from writer\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
