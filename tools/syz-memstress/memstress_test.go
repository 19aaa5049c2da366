// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/syz-memstress/pkg/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestMain(m *testing.M) {
	// Runs re-execute the test binary in worker mode.
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		os.Exit(harness.WorkerMain(os.Args[2:]))
	}
	os.Exit(m.Run())
}

// Flags stay set between parses, so the cases go from fewer to more flags.
func TestParseConfig(t *testing.T) {
	require.NoError(t, flag.CommandLine.Parse([]string{"7", "200", "4", "out.log"}))
	cfg, logFile, err := parseConfig()
	require.NoError(t, err)
	want := harness.DefaultConfig()
	want.Seed, want.Insns, want.Workers = 7, 200, 4
	assert.Equal(t, want, cfg)
	assert.Equal(t, "out.log", logFile)

	require.NoError(t, flag.CommandLine.Parse([]string{"1", "x"}))
	_, _, err = parseConfig()
	assert.Error(t, err)

	require.NoError(t, flag.CommandLine.Parse([]string{"1", "2", "3", "4", "5"}))
	_, _, err = parseConfig()
	assert.Error(t, err)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
# comments are allowed
{
	"seed": 99,
	"insns": 10,
	"workers": 2,
	"layout": {"data": 8192, "code": 4096, "comm": 4096}
}`), 0644))
	require.NoError(t, flag.CommandLine.Parse([]string{
		"-config", cfgFile, "-workers=3", "-private-data", "-log", "flag.log", "5"}))
	cfg, logFile, err = parseConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.Seed)
	assert.Equal(t, 10, cfg.Insns)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.PrivateData)
	assert.Equal(t, 4096, cfg.Layout.Code)
	assert.Equal(t, 8192, cfg.Layout.Data)
	assert.Equal(t, "flag.log", logFile)

	require.NoError(t, flag.CommandLine.Parse([]string{"-code-size=0"}))
	_, _, err = parseConfig()
	assert.Error(t, err)
}

func TestDumpCompressed(t *testing.T) {
	cfg := harness.DefaultConfig()
	cfg.Workers = 2
	cfg.Insns = 20
	dir := t.TempDir()
	plain := filepath.Join(dir, "dump.txt")
	compressed := filepath.Join(dir, "dump.txt.xz")
	require.NoError(t, dump(cfg, plain))
	require.NoError(t, dump(cfg, compressed))
	want, err := os.ReadFile(plain)
	require.NoError(t, err)
	f, err := os.Open(compressed)
	require.NoError(t, err)
	defer f.Close()
	r, err := xz.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	// Headers carry different run ids.
	skipHeader := func(data []byte) string {
		return string(data[bytes.IndexByte(data, '\n'):])
	}
	assert.Equal(t, skipHeader(want), skipHeader(got))
	assert.Contains(t, string(got), "# worker 1")
}
