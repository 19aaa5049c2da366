// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/google/syz-memstress/pkg/host"
	"github.com/google/syz-memstress/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	cpus, err := host.Affinity()
	require.NoError(t, err)
	if !slices.Contains(cpus, 0) {
		t.Skipf("cpu 0 is not available: %v", cpus)
	}
	cfg := DefaultConfig()
	cfg.Executor = os.Args[0]
	cfg.Output = &testutil.Writer{TB: t}
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Insns = 1
	res, err := Run(cfg)
	require.NoError(t, err)
	require.Len(t, res.Workers, 1)
	w := res.Workers[0]
	assert.True(t, res.OK())
	assert.Equal(t, StateCompleted, w.State)
	assert.Equal(t, StatusOK, w.ExitStatus)
	assert.NoError(t, w.Err)
	assert.Equal(t, []byte{0xc8, 0x00, 0x08, 0x00}, w.Code[:4])
	assert.Equal(t, byte(0xc3), w.Code[len(w.Code)-1])
	assert.Equal(t, 1+1+2*5+3, w.Insns)
}

func TestRunMany(t *testing.T) {
	cfg := testConfig(t)
	cpus, _ := host.Affinity()
	for n := len(cpus); n > 0; n-- {
		if cpus[n-1] == n-1 {
			cfg.Workers = min(n, 4)
			break
		}
	}
	cfg.Insns = 500
	for _, private := range []bool{false, true} {
		cfg.PrivateData = private
		res, err := Run(cfg)
		require.NoError(t, err)
		require.Len(t, res.Workers, cfg.Workers)
		for _, w := range res.Workers {
			assert.Equal(t, StateCompleted, w.State, "worker %v: %v", w.ID, w.Err)
		}
		assert.True(t, res.OK())
	}
}

func TestRunRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.Layout.Code = 100
	cfg.Insns = 100
	res, err := Run(cfg)
	require.NoError(t, err)
	assert.False(t, res.OK())
	rejected := res.Rejected()
	require.Len(t, rejected, 1)
	assert.Equal(t, StatusGenerate, rejected[0].ExitStatus)
	assert.Equal(t, StateGenerated, rejected[0].Failed)
	assert.Nil(t, rejected[0].Code)
}

func TestRunBadExecutor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Executor = "/nonexistent/syz-memstress"
	res, err := Run(cfg)
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal), "got %v", err)
	assert.Equal(t, 0, fatal.Worker)
	require.Len(t, res.Workers, 1)
	assert.Equal(t, StateNone, res.Workers[0].State)
}

func TestRunBindFailure(t *testing.T) {
	cfg := testConfig(t)
	cpus, _ := host.Affinity()
	if len(cpus) >= MaxWorkers {
		t.Skip("all worker cpus are available")
	}
	cfg.Workers = MaxWorkers
	res, err := Run(cfg)
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal), "got %v", err)
	assert.False(t, res.OK())
}
