// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/syz-memstress/pkg/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Run re-executes the test binary in worker mode.
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		os.Exit(WorkerMain(os.Args[2:]))
	}
	os.Exit(m.Run())
}

func TestClampWorkers(t *testing.T) {
	for in, want := range map[int]int{-5: 1, 0: 1, 1: 1, 7: 7, 64: 64, 65: 64, 1000: 64} {
		assert.Equal(t, want, ClampWorkers(in), "workers=%v", in)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	cfg.Layout.Data = 100
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.Layout.Comm = 0
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.Insns = -1
	assert.Error(t, cfg.Validate())
}

func TestWorkerArgs(t *testing.T) {
	cfg := &Config{
		Seed:        -42,
		Insns:       77,
		Layout:      region.Layout{Data: 4096, Code: 1000, Comm: 10},
		PrivateData: true,
		Verbosity:   2,
	}
	args := workerArgs(cfg, 3, 8)
	require.Equal(t, "worker", args[0])
	wc, err := parseWorkerArgs(args[1:])
	require.NoError(t, err)
	want := &workerConfig{
		ID:          3,
		Workers:     8,
		Seed:        -42,
		Insns:       77,
		Layout:      cfg.Layout,
		PrivateData: true,
		Verbosity:   2,
	}
	if diff := cmp.Diff(want, wc); diff != "" {
		t.Fatal(diff)
	}
	valid := args[1:]
	with := func(extra ...string) []string {
		return append(append([]string{}, valid...), extra...)
	}
	var noSeed []string
	for _, arg := range valid {
		if !strings.HasPrefix(arg, "-seed=") {
			noSeed = append(noSeed, arg)
		}
	}
	for _, bad := range [][]string{
		with("-id=8"),
		with("-id=-1"),
		with("-workers=65"),
		with("-foo"),
		with("positional"),
		noSeed,
	} {
		_, err := parseWorkerArgs(bad)
		assert.Error(t, err, "args %q", bad)
	}
}

func statusStream(t *testing.T, worker int, records ...statusRecord) io.ReadCloser {
	buf := new(bytes.Buffer)
	for _, rec := range records {
		if rec.Magic == 0 {
			rec.Magic = statusMagic
		}
		if rec.Worker == 0 {
			rec.Worker = uint32(worker)
		}
		require.NoError(t, writeRecord(buf, rec))
	}
	return io.NopCloser(buf)
}

func TestReadStatus(t *testing.T) {
	type Test struct {
		name    string
		records []statusRecord
		state   State
		failed  State
		bad     bool
	}
	tests := []Test{
		{
			name: "complete",
			records: []statusRecord{
				{State: uint32(StateBound)},
				{State: uint32(StateGenerated)},
				{State: uint32(StateExecuting)},
				{State: uint32(StateCompleted)},
			},
			state: StateCompleted,
		},
		{
			name: "rejected",
			records: []statusRecord{
				{State: uint32(StateBound)},
				{State: uint32(StateGenerated), Code: StatusGenerate},
			},
			state:  StateBound,
			failed: StateGenerated,
		},
		{
			name:    "setup failure",
			records: []statusRecord{{State: uint32(StateSpawned), Code: StatusSetup}},
			state:   StateSpawned,
			failed:  StateSpawned,
		},
		{
			name:    "no reports",
			records: nil,
			state:   StateSpawned,
		},
		{
			name: "skipped state",
			records: []statusRecord{
				{State: uint32(StateBound)},
				{State: uint32(StateExecuting)},
			},
			state: StateBound,
			bad:   true,
		},
		{
			name:    "bad magic",
			records: []statusRecord{{Magic: 0xdeadbeef, State: uint32(StateBound)}},
			state:   StateSpawned,
			bad:     true,
		},
		{
			name:    "other worker",
			records: []statusRecord{{Worker: 7, State: uint32(StateBound)}},
			state:   StateSpawned,
			bad:     true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := &Worker{ID: 1, State: StateSpawned, status: statusStream(t, 1, test.records...)}
			err := w.readStatus()
			if test.bad {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, test.state, w.State)
			assert.Equal(t, test.failed, w.Failed)
		})
	}
}

func TestTruncatedStatus(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, writeRecord(buf, statusRecord{statusMagic, 0, uint32(StateBound), 0}))
	buf.Truncate(buf.Len() - 3)
	w := &Worker{State: StateSpawned, status: io.NopCloser(buf)}
	assert.Error(t, w.readStatus())
}

func TestFinish(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	type Test struct {
		name   string
		ctx    context.Context
		state  State
		status int
		proto  error
		fatal  bool
		err    error
	}
	tests := []Test{
		{name: "ok", state: StateCompleted, status: StatusOK},
		{name: "bind", state: StateSpawned, status: StatusBind, fatal: true},
		{name: "setup", state: StateSpawned, status: StatusSetup, fatal: true},
		{name: "protocol", state: StateBound, status: StatusOK, proto: errors.New("bad"), fatal: true},
		{name: "rejected", state: StateBound, status: StatusGenerate, err: ErrGenerationRejected},
		{name: "killed", ctx: cancelled, state: StateExecuting, status: -1, err: context.Canceled},
		{name: "crashed", state: StateExecuting, status: -1},
		{name: "early exit", state: StateGenerated, status: StatusOK},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := test.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			w := &Worker{ID: 2, State: test.state, ExitStatus: test.status}
			err := w.finish(ctx, test.proto)
			if test.fatal {
				var fatal *FatalError
				require.True(t, errors.As(err, &fatal), "got %v", err)
				assert.Equal(t, 2, fatal.Worker)
				return
			}
			require.NoError(t, err)
			switch {
			case test.err != nil:
				assert.ErrorIs(t, w.Err, test.err)
			case test.state == StateCompleted:
				assert.NoError(t, w.Err)
			default:
				assert.Error(t, w.Err)
			}
		})
	}
}

func TestResult(t *testing.T) {
	res := &Result{Workers: []*Worker{
		{ID: 0, State: StateCompleted},
		{ID: 1, State: StateBound, Err: ErrGenerationRejected},
	}}
	assert.False(t, res.OK())
	rejected := res.Rejected()
	require.Len(t, rejected, 1)
	assert.Equal(t, 1, rejected[0].ID)
	res.Workers = res.Workers[:1]
	assert.True(t, res.OK())
	assert.Empty(t, res.Rejected())
}

func TestDump(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Insns = 10
	out := new(bytes.Buffer)
	require.NoError(t, Dump(cfg, out))
	text := out.String()
	assert.Contains(t, text, "# worker 0\n")
	assert.Contains(t, text, "# worker 1\n")
	assert.Equal(t, 2, strings.Count(text, " enter "), text)
	assert.Equal(t, 2, strings.Count(text, " ret "), text)
	assert.Contains(t, text, ": 11 instructions, ")

	// Same config, same programs.
	again := new(bytes.Buffer)
	require.NoError(t, Dump(cfg, again))
	assert.Equal(t, text[strings.IndexByte(text, '\n'):], again.String()[strings.IndexByte(again.String(), '\n'):])

	cfg.Layout.Code = 50
	cfg.Insns = 100
	out.Reset()
	require.NoError(t, Dump(cfg, out))
	assert.Equal(t, 2, strings.Count(out.String(), ErrGenerationRejected.Error()), out.String())
}
