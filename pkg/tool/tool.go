// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains various helper utilitites useful for implementation of command line tools.
package tool

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

var (
	flagCPUProfile = flag.String("cpuprofile", "", "write CPU profile to this file")
	flagMemProfile = flag.String("memprofile", "", "write memory profile to this file")
)

// Init parses command line flags and starts profiling if requested.
// The returned function must be called before exit: defer tool.Init()().
func Init() func() {
	flag.Parse()
	stop, err := startProfiling(*flagCPUProfile, *flagMemProfile)
	if err != nil {
		Fail(err)
	}
	return stop
}

func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}

func startProfiling(cpuprof, memprof string) (func(), error) {
	var cpuFile *os.File
	if cpuprof != "" {
		f, err := os.Create(cpuprof)
		if err != nil {
			return nil, fmt.Errorf("failed to create cpuprofile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		cpuFile = f
	}
	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprof != "" {
			if err := writeHeapProfile(memprof); err != nil {
				Fail(err)
			}
		}
	}, nil
}

func writeHeapProfile(file string) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create memprofile file: %w", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write mem profile: %w", err)
	}
	return nil
}
