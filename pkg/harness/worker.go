// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/syz-memstress/pkg/hash"
	"github.com/google/syz-memstress/pkg/log"
	"github.com/google/syz-memstress/pkg/osutil"
	"github.com/google/syz-memstress/pkg/region"
	"github.com/google/syz-memstress/pkg/tool"
)

// State of a worker. A worker goes through all states in order.
type State uint32

const (
	StateNone State = iota
	StateSpawned
	StateBound
	StateGenerated
	StateExecuting
	StateCompleted
)

var stateNames = [...]string{"none", "spawned", "bound", "generated", "executing", "completed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Worker exit statuses.
const (
	StatusOK       = 0
	StatusBind     = 67 // CPU pinning failed, aborts the run
	StatusGenerate = 68 // the program could not be generated, the worker did not execute anything
	StatusSetup    = 69 // regions or arguments are unusable, aborts the run
)

func statusString(status int) string {
	switch status {
	case StatusOK:
		return "ok"
	case StatusBind:
		return "bind failure"
	case StatusGenerate:
		return "generation rejected"
	case StatusSetup:
		return "setup failure"
	}
	return fmt.Sprintf("status %v", status)
}

// File descriptors of regions and the status pipe in worker processes.
const (
	fdData = 3 + iota
	fdCode
	fdComm
	fdStatus
)

// Worker is the parent side of a worker process.
type Worker struct {
	ID         int
	Pid        int
	State      State
	ExitStatus int
	// Failed is the state the worker failed to reach, if it reported a failure.
	// Setup failures before binding are reported as StateSpawned.
	Failed   State
	Err      error
	Duration time.Duration
	// Program found in the code slice after completion.
	Code  []byte
	Insns int
	Sig   hash.Sig

	cmd     *exec.Cmd
	status  io.ReadCloser
	started time.Time
}

func workerArgs(cfg *Config, id, workers int) []string {
	return append([]string{"worker"}, tool.Args(
		tool.Flag{Name: "id", Value: strconv.Itoa(id)},
		tool.Flag{Name: "workers", Value: strconv.Itoa(workers)},
		tool.Flag{Name: "seed", Value: strconv.FormatInt(cfg.Seed, 10)},
		tool.Flag{Name: "insns", Value: strconv.Itoa(cfg.Insns)},
		tool.Flag{Name: "data", Value: strconv.Itoa(cfg.Layout.Data)},
		tool.Flag{Name: "code", Value: strconv.Itoa(cfg.Layout.Code)},
		tool.Flag{Name: "comm", Value: strconv.Itoa(cfg.Layout.Comm)},
		tool.Flag{Name: "private-data", Value: strconv.FormatBool(cfg.PrivateData)},
		tool.Flag{Name: "vv", Value: strconv.Itoa(cfg.Verbosity)},
	)...)
}

func (w *Worker) start(cfg *Config, executor string, workers int, regions *region.Set) error {
	rp, wp, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	args := workerArgs(cfg, w.ID, workers)
	cmd := osutil.Command(executor, args...)
	cmd.ExtraFiles = append(regions.Files(), wp)
	cmd.Stdout = outputOf(cfg)
	cmd.Stderr = outputOf(cfg)
	if err := cmd.Start(); err != nil {
		rp.Close()
		wp.Close()
		return fmt.Errorf("failed to start %v: %w", executor, err)
	}
	wp.Close()
	w.cmd = cmd
	w.status = rp
	w.Pid = cmd.Process.Pid
	w.State = StateSpawned
	w.started = time.Now()
	statSpawned.Add(1)
	log.Logf(1, "worker %v: spawned pid %v: %q", w.ID, w.Pid, args)
	return nil
}

// wait follows the worker's status reports until it exits.
// The worker is killed if ctx is cancelled because some other worker failed fatally.
func (w *Worker) wait(ctx context.Context) error {
	exited := make(chan struct{})
	defer close(exited)
	go func() {
		select {
		case <-ctx.Done():
			w.cmd.Process.Kill()
		case <-exited:
		}
	}()
	protoErr := w.readStatus()
	if protoErr != nil {
		w.cmd.Process.Kill()
	}
	w.status.Close()
	w.cmd.Wait()
	w.Duration = time.Since(w.started)
	statWorkerTime.Add(durationMs(w.Duration))
	w.ExitStatus = osutil.ProcessExitStatus(w.cmd.ProcessState)
	return w.finish(ctx, protoErr)
}

func (w *Worker) finish(ctx context.Context, protoErr error) error {
	switch {
	case protoErr != nil:
		statFailed.Add(1)
		return &FatalError{Worker: w.ID, Op: "status", Err: protoErr}
	case w.ExitStatus == StatusOK && w.State == StateCompleted:
		statCompleted.Add(1)
		return nil
	case w.ExitStatus == StatusBind:
		statFailed.Add(1)
		return &FatalError{Worker: w.ID, Op: "bind", Err: fmt.Errorf("failed to pin to cpu %v", w.ID)}
	case w.ExitStatus == StatusSetup:
		statFailed.Add(1)
		return &FatalError{Worker: w.ID, Op: "setup", Err: fmt.Errorf("failed in state %v", w.State)}
	case w.ExitStatus == StatusGenerate:
		statRejected.Add(1)
		w.Err = ErrGenerationRejected
		log.Logf(0, "worker %v: %v, nothing was executed", w.ID, w.Err)
		return nil
	case ctx.Err() != nil:
		w.Err = fmt.Errorf("killed in state %v: %w", w.State, ctx.Err())
		return nil
	default:
		statFailed.Add(1)
		w.Err = fmt.Errorf("exited with status %v in state %v", w.ExitStatus, w.State)
		log.Logf(0, "worker %v: %v", w.ID, w.Err)
		return nil
	}
}

// readStatus consumes status records until the worker closes the pipe.
// Every successful transition must go to the next state.
func (w *Worker) readStatus() error {
	for {
		rec, err := readRecord(w.status)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read status: %w", err)
		}
		if rec.Magic != statusMagic || int(rec.Worker) != w.ID {
			return fmt.Errorf("bad status record %+v", rec)
		}
		state := State(rec.State)
		if rec.Code != 0 {
			w.Failed = state
			log.Logf(1, "worker %v: %v in %v", w.ID, statusString(int(rec.Code)), state)
			continue
		}
		if state != w.State+1 {
			return fmt.Errorf("bad transition %v -> %v", w.State, state)
		}
		w.State = state
		log.Logf(2, "worker %v: %v", w.ID, state)
	}
}
