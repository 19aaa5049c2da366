// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//  - verbosity levels
//  - global verbosity setting that can be used by multiple packages
//  - redirection of all output to a log file
//  - per-process prefix, so that output of many processes sharing a file can be told apart
package log

import (
	"flag"
	"io"
	golog "log"
	"sync"
)

var (
	flagV = flag.Int("vv", 0, "verbosity")
	mu    sync.Mutex
	// verbosity overrides the flag when set with SetVerbosity.
	verbosity = -1
)

// V reports whether messages of level v are printed.
// It allows to skip expensive formatting of messages that won't be printed.
func V(v int) bool {
	return v <= Verbosity()
}

func Verbosity() int {
	mu.Lock()
	defer mu.Unlock()
	if verbosity >= 0 {
		return verbosity
	}
	return *flagV
}

func SetVerbosity(v int) {
	mu.Lock()
	defer mu.Unlock()
	verbosity = v
}

// SetOutput redirects all output to w.
func SetOutput(w io.Writer) {
	golog.SetOutput(w)
}

// SetPrefix sets the prefix of every message.
// Prefix goes in front of the message, after the time stamp.
func SetPrefix(prefix string) {
	golog.SetPrefix(prefix)
	golog.SetFlags(golog.Flags() | golog.Lmsgprefix)
}

func Logf(v int, msg string, args ...interface{}) {
	if V(v) {
		golog.Printf(msg, args...)
	}
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}

type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}
