// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package harness runs generated stress programs: it creates the shared regions, starts one
// process per worker, each pinned to the CPU equal to its id, and waits for all of them.
// Workers are the same binary re-executed in worker mode (see WorkerMain).
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/syz-memstress/pkg/hash"
	"github.com/google/syz-memstress/pkg/ifuzz"
	"github.com/google/syz-memstress/pkg/log"
	"github.com/google/syz-memstress/pkg/osutil"
	"github.com/google/syz-memstress/pkg/region"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config is immutable once a run starts.
type Config struct {
	Seed    int64         `json:"seed"`
	Insns   int           `json:"insns"`   // body instructions per worker
	Workers int           `json:"workers"` // clamped to MaxWorkers
	Layout  region.Layout `json:"layout"`
	// Each worker addresses its own data slice instead of the shared data base.
	PrivateData bool `json:"private_data,omitempty"`

	// Binary started in worker mode, the running executable by default.
	Executor string `json:"-"`
	// Output of worker processes, stderr by default.
	Output    io.Writer `json:"-"`
	Verbosity int       `json:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Seed:    12345,
		Insns:   100,
		Workers: 1,
		Layout:  region.DefaultLayout(),
	}
}

func (cfg *Config) Validate() error {
	if cfg.Insns < 0 {
		return fmt.Errorf("bad number of instructions %v", cfg.Insns)
	}
	if err := cfg.Layout.Validate(); err != nil {
		return err
	}
	if cfg.Layout.Data < ifuzz.DataSpan {
		return fmt.Errorf("data stride %v is less than the %v bytes touched by programs",
			cfg.Layout.Data, ifuzz.DataSpan)
	}
	return nil
}

const MaxWorkers = 64

// ClampWorkers brings the number of workers into [1, MaxWorkers].
func ClampWorkers(n int) int {
	switch {
	case n > MaxWorkers:
		log.Logf(0, "too many workers %v, using %v", n, MaxWorkers)
		return MaxWorkers
	case n < 1:
		log.Logf(0, "bad number of workers %v, using 1", n)
		return 1
	}
	return n
}

// FatalError aborts the whole run: the environment can't host a valid experiment.
type FatalError struct {
	Worker int // -1 if not related to a particular worker
	Op     string
	Err    error
}

func (err *FatalError) Error() string {
	if err.Worker < 0 {
		return fmt.Sprintf("%v: %v", err.Op, err.Err)
	}
	return fmt.Sprintf("worker %v: %v: %v", err.Worker, err.Op, err.Err)
}

func (err *FatalError) Unwrap() error {
	return err.Err
}

var ErrGenerationRejected = errors.New("program generation was rejected")

type Result struct {
	RunID   uuid.UUID
	Workers []*Worker
}

// OK is true if every worker ran its program to completion.
func (res *Result) OK() bool {
	for _, w := range res.Workers {
		if w.State != StateCompleted || w.Err != nil {
			return false
		}
	}
	return true
}

// Rejected returns workers that did not run because their program could not be generated.
func (res *Result) Rejected() []*Worker {
	var rejected []*Worker
	for _, w := range res.Workers {
		if errors.Is(w.Err, ErrGenerationRejected) {
			rejected = append(rejected, w)
		}
	}
	return rejected
}

// Run executes one stress run. The returned error is a *FatalError if the run was aborted,
// in that case the result still describes all workers that were started.
func Run(cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	executor := cfg.Executor
	if executor == "" {
		var err error
		if executor, err = osutil.Executable(); err != nil {
			return nil, &FatalError{Worker: -1, Op: "setup", Err: err}
		}
	}
	n := ClampWorkers(cfg.Workers)
	res := &Result{
		RunID:   uuid.New(),
		Workers: make([]*Worker, n),
	}
	log.Logf(0, "run %v: seed=%v insns=%v workers=%v", res.RunID, cfg.Seed, cfg.Insns, n)
	regions, err := region.Create(cfg.Layout, n)
	if err != nil {
		statFatal.Add(1)
		return nil, &FatalError{Worker: -1, Op: "region setup", Err: err}
	}
	for _, r := range []*region.Region{regions.Data, regions.Code, regions.Comm} {
		log.Logf(1, "%v", r)
	}
	eg, ctx := errgroup.WithContext(context.Background())
	for i := range res.Workers {
		w := &Worker{ID: i}
		res.Workers[i] = w
		if err := w.start(cfg, executor, n, regions); err != nil {
			fatal := &FatalError{Worker: i, Op: "spawn", Err: err}
			// Cancels the context, already started workers are killed.
			eg.Go(func() error { return fatal })
			res.Workers = res.Workers[:i+1]
			break
		}
		eg.Go(func() error { return w.wait(ctx) })
	}
	err = eg.Wait()
	// All started workers have terminated at this point.
	for _, w := range res.Workers {
		if w.State == StateCompleted {
			w.collect(regions.Code.Slice(w.ID))
		}
	}
	if cerr := regions.Close(); cerr != nil && err == nil {
		err = &FatalError{Worker: -1, Op: "region release", Err: cerr}
	}
	if err != nil {
		statFatal.Add(1)
	}
	return res, err
}

// collect decodes the program the worker left in its code slice.
func (w *Worker) collect(slice []byte) {
	lines, err := ifuzz.Disassemble(slice)
	if err != nil {
		w.Err = fmt.Errorf("bad program in the code slice: %w", err)
		return
	}
	last := lines[len(lines)-1]
	w.Code = append([]byte{}, slice[:last.Offset+len(last.Text)]...)
	w.Insns = len(lines)
	w.Sig = hash.Hash(w.Code)
	statCodeBytes.Add(len(w.Code))
	statInsns.Add(len(lines))
	log.Logf(0, "worker %v: program %v: %v bytes, %v instructions, %v",
		w.ID, w.Sig.Short(), len(w.Code), len(lines), w.Duration)
}

// WorkerTime returns the given quantile of worker lifetimes across all runs of the process.
func WorkerTime(q float64) time.Duration {
	return time.Duration(statWorkerTime.Quantile(q)) * time.Millisecond
}

func outputOf(cfg *Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}
	return os.Stderr
}

func durationMs(d time.Duration) int {
	return int(d / time.Millisecond)
}
