// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/syz-memstress/pkg/host"
	"github.com/google/syz-memstress/pkg/ifuzz"
	"github.com/google/syz-memstress/pkg/ifuzz/x86"
	"github.com/google/syz-memstress/pkg/log"
	"github.com/google/syz-memstress/pkg/region"
	"github.com/google/syz-memstress/pkg/tool"
	"golang.org/x/arch/x86/x86asm"
)

// Platform is what a worker needs from the machine.
type Platform interface {
	BindCPU(cpu int) error
	Execute(code []byte) error
}

type hostPlatform struct{}

func (hostPlatform) BindCPU(cpu int) error     { return host.BindCPU(cpu) }
func (hostPlatform) Execute(code []byte) error { return host.Execute(code) }

type workerConfig struct {
	ID          int
	Workers     int
	Seed        int64
	Insns       int
	Layout      region.Layout
	PrivateData bool
	Verbosity   int
}

func parseWorkerArgs(args []string) (*workerConfig, error) {
	wc := new(workerConfig)
	flags := flag.NewFlagSet("worker", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.IntVar(&wc.ID, "id", -1, "worker id and cpu")
	flags.IntVar(&wc.Workers, "workers", 0, "total number of workers")
	flags.Int64Var(&wc.Seed, "seed", 0, "run seed")
	flags.IntVar(&wc.Insns, "insns", 0, "number of body instructions")
	flags.IntVar(&wc.Layout.Data, "data", 0, "data stride")
	flags.IntVar(&wc.Layout.Code, "code", 0, "code stride")
	flags.IntVar(&wc.Layout.Comm, "comm", 0, "comm stride")
	flags.BoolVar(&wc.PrivateData, "private-data", false, "use own data slice")
	flags.IntVar(&wc.Verbosity, "vv", 0, "verbosity")
	if err := tool.ParseFlags(flags, args, "id", "workers", "seed", "insns", "data", "code", "comm"); err != nil {
		return nil, err
	}
	if wc.ID < 0 || wc.ID >= wc.Workers || wc.Workers > MaxWorkers {
		return nil, fmt.Errorf("bad worker %v out of %v", wc.ID, wc.Workers)
	}
	return wc, nil
}

// WorkerMain is the entry point of a worker process started by Run.
// It returns the exit status of the process.
func WorkerMain(args []string) int {
	wc, err := parseWorkerArgs(args)
	if err != nil {
		log.Logf(0, "bad worker arguments %q: %v", args, err)
		return StatusSetup
	}
	log.SetPrefix(fmt.Sprintf("T%v: ", wc.ID))
	log.SetVerbosity(wc.Verbosity)
	status := &statusWriter{w: os.NewFile(fdStatus, "status"), worker: wc.ID}
	files := []*os.File{
		os.NewFile(fdData, "data"),
		os.NewFile(fdCode, "code"),
		os.NewFile(fdComm, "comm"),
	}
	regions, err := attachRegions(wc, files, status)
	if err == nil {
		defer regions.Close()
		err = runWorker(wc, regions, hostPlatform{}, status)
	}
	if err != nil {
		log.Logf(0, "%v", err)
		var werr *workerError
		if errors.As(err, &werr) {
			return werr.status
		}
		return StatusSetup
	}
	return StatusOK
}

// attachRegions maps the inherited region files.
// A failure is reported against StateSpawned since the worker never got to binding.
func attachRegions(wc *workerConfig, files []*os.File, rep reporter) (*region.Set, error) {
	regions, err := region.Attach(wc.Layout, wc.Workers, files)
	if err != nil {
		rep.fail(StateSpawned, StatusSetup)
		return nil, &workerError{StatusSetup, fmt.Errorf("failed to attach regions: %w", err)}
	}
	return regions, nil
}

type workerError struct {
	status int
	err    error
}

func (err *workerError) Error() string {
	return err.err.Error()
}

func (err *workerError) Unwrap() error {
	return err.err
}

// runWorker moves the worker through all states: bind, generate into the code slice, execute.
// A program that failed to generate is never copied into the code slice.
func runWorker(wc *workerConfig, regions *region.Set, platform Platform, rep reporter) error {
	if err := platform.BindCPU(wc.ID); err != nil {
		rep.fail(StateBound, StatusBind)
		return &workerError{StatusBind, err}
	}
	log.Logf(0, "bound to cpu %v", wc.ID)
	rep.report(StateBound)
	code, err := generate(wc, regions)
	if err != nil {
		rep.fail(StateGenerated, StatusGenerate)
		return &workerError{StatusGenerate, err}
	}
	rep.report(StateGenerated)
	rep.report(StateExecuting)
	if err := platform.Execute(code); err != nil {
		rep.fail(StateCompleted, StatusSetup)
		return &workerError{StatusSetup, err}
	}
	rep.report(StateCompleted)
	log.Logf(1, "returned")
	return nil
}

func generate(wc *workerConfig, regions *region.Set) ([]byte, error) {
	slice := regions.Code.Slice(wc.ID)
	cfg := &ifuzz.Config{
		Seed:     wc.Seed,
		Worker:   wc.ID,
		Len:      wc.Insns,
		DataBase: regions.Data.Base(),
		DataSize: uint64(regions.Data.Size),
	}
	if wc.PrivateData {
		cfg.DataBase = regions.Data.SliceBase(wc.ID)
		cfg.DataSize = uint64(regions.Data.Stride)
	}
	if log.V(1) {
		cfg.Trace = traceEvent
	}
	log.Logf(0, "code slice 0x%x, data base 0x%x", regions.Code.SliceBase(wc.ID), cfg.DataBase)
	scratch := make([]byte, len(slice))
	p, err := ifuzz.Generate(cfg, x86.NewWriter(scratch))
	if err != nil {
		return nil, fmt.Errorf("failed to generate program: %w", err)
	}
	n := copy(slice, p.Code)
	log.Logf(0, "instructions generated: %v, %v bytes", p.Insns, n)
	return slice[:n], nil
}

func traceEvent(ev *ifuzz.Event) {
	text := ev.Insn.String()
	if inst, err := x86asm.Decode(ev.Text, 64); err == nil {
		text = ifuzz.FormatInst(inst)
	}
	log.Logf(1, "%v +0x%04x %-40v % x", ev.N, ev.Offset, text, ev.Text)
}
