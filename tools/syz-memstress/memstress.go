// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-memstress runs randomly generated x86-64 programs that race on shared memory,
// one worker process per CPU.
//
// Usage:
//
//	syz-memstress [flags] [seed [ninstrs [nthreads [logfile]]]]
//
// Positional arguments override the config file, explicitly set flags override both.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/syz-memstress/pkg/config"
	"github.com/google/syz-memstress/pkg/harness"
	"github.com/google/syz-memstress/pkg/host"
	"github.com/google/syz-memstress/pkg/log"
	"github.com/google/syz-memstress/pkg/osutil"
	"github.com/google/syz-memstress/pkg/stats"
	"github.com/google/syz-memstress/pkg/tool"
	"github.com/ulikunitz/xz"
)

var (
	flagSeed        = flag.Int64("seed", 0, "prng seed")
	flagInsns       = flag.Int("insns", 0, "number of instructions per worker")
	flagWorkers     = flag.Int("workers", 0, "number of workers, one per cpu starting from cpu 0")
	flagLog         = flag.String("log", "", "write log to this file instead of stderr")
	flagConfig      = flag.String("config", "", "JSON config file")
	flagSaveConfig  = flag.String("save-config", "", "write the effective config to this file and exit")
	flagPrivateData = flag.Bool("private-data", false, "each worker addresses its own data slice")
	flagCodeSize    = flag.Int("code-size", 0, "per-worker code slice size")
	flagDump        = flag.Bool("dump", false, "print the programs instead of running them")
	flagDumpOut     = flag.String("dump-out", "", "write -dump output to this file, compressed if it ends with .xz")
	flagMetrics     = flag.String("metrics", "", "write prometheus metrics to this file after the run")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		os.Exit(harness.WorkerMain(os.Args[2:]))
	}
	stop := tool.Init()
	err := run()
	// Profiles must be written on failures too.
	stop()
	if err != nil {
		tool.Fail(err)
	}
}

func run() error {
	cfg, logFile, err := parseConfig()
	if err != nil {
		return err
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, osutil.DefaultFilePerm)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
		cfg.Output = f
	}
	cfg.Verbosity = log.Verbosity()
	if *flagSaveConfig != "" {
		return config.SaveFile(*flagSaveConfig, cfg)
	}
	if *flagDump {
		return dump(cfg, *flagDumpOut)
	}
	if mi, err := host.CollectMachineInfo(); err == nil {
		log.Logf(0, "machine: %v", mi)
	} else {
		log.Logf(0, "failed to collect machine info: %v", err)
	}
	res, err := harness.Run(cfg)
	writeMetrics()
	if err != nil {
		var fatal *harness.FatalError
		if errors.As(err, &fatal) {
			return fmt.Errorf("run aborted: %w", err)
		}
		return err
	}
	for _, w := range res.Workers {
		log.Logf(0, "worker %v: pid %v, %v, exit status %v", w.ID, w.Pid, w.State, w.ExitStatus)
	}
	for _, stat := range stats.Collect(stats.Console) {
		log.Logf(0, "%v: %v", stat.Name, stat.Value)
	}
	log.Logf(0, "worker time: p50 %v, p90 %v", harness.WorkerTime(0.5), harness.WorkerTime(0.9))
	if rejected := res.Rejected(); len(rejected) != 0 {
		return fmt.Errorf("%v of %v workers did not run: %w",
			len(rejected), len(res.Workers), harness.ErrGenerationRejected)
	}
	log.Logf(0, "run %v done", res.RunID)
	return nil
}

// parseConfig returns the run config and the log file name.
func parseConfig() (*harness.Config, string, error) {
	cfg := harness.DefaultConfig()
	if *flagConfig != "" {
		if err := config.LoadFile(*flagConfig, cfg); err != nil {
			return nil, "", err
		}
	}
	logFile := ""
	args := flag.Args()
	if len(args) > 4 {
		return nil, "", fmt.Errorf("too many arguments %q", args)
	}
	for i, arg := range args {
		if i == 3 {
			logFile = arg
			break
		}
		v, err := strconv.ParseInt(arg, 0, 64)
		if err != nil {
			return nil, "", fmt.Errorf("bad argument %q: %w", arg, err)
		}
		switch i {
		case 0:
			cfg.Seed = v
		case 1:
			cfg.Insns = int(v)
		case 2:
			cfg.Workers = int(v)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *flagSeed
		case "insns":
			cfg.Insns = *flagInsns
		case "workers":
			cfg.Workers = *flagWorkers
		case "log":
			logFile = *flagLog
		case "private-data":
			cfg.PrivateData = *flagPrivateData
		case "code-size":
			cfg.Layout.Code = *flagCodeSize
		}
	})
	return cfg, logFile, cfg.Validate()
}

func dump(cfg *harness.Config, file string) error {
	if file == "" {
		return harness.Dump(cfg, os.Stdout)
	}
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, osutil.DefaultFilePerm)
	if err != nil {
		return err
	}
	defer f.Close()
	var out io.WriteCloser = nopCloser{f}
	if strings.HasSuffix(file, ".xz") {
		if out, err = xz.NewWriter(f); err != nil {
			return err
		}
	}
	if err := harness.Dump(cfg, out); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return f.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func writeMetrics() {
	if *flagMetrics == "" {
		return
	}
	if err := stats.WriteTextfile(*flagMetrics); err != nil {
		log.Logf(0, "%v", err)
	}
}
