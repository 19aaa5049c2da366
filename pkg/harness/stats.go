// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"github.com/google/syz-memstress/pkg/stats"
)

var (
	statSpawned = stats.Create("workers spawned", "Number of started worker processes",
		stats.Console, stats.Prometheus("memstress_workers_spawned"))
	statCompleted = stats.Create("workers completed", "Number of workers that ran their program to completion",
		stats.Console, stats.Prometheus("memstress_workers_completed"))
	statRejected = stats.Create("programs rejected", "Number of workers whose program could not be generated",
		stats.Console, stats.Prometheus("memstress_programs_rejected"))
	statFailed = stats.Create("workers failed", "Number of workers that crashed or failed to set up",
		stats.Console, stats.Prometheus("memstress_workers_failed"))
	statFatal = stats.Create("fatal errors", "Number of aborted runs",
		stats.Simple, stats.Prometheus("memstress_fatal_errors"))
	statCodeBytes = stats.Create("code bytes", "Total size of executed programs",
		stats.Simple, stats.Prometheus("memstress_code_bytes"))
	statInsns = stats.Create("instructions", "Total number of instructions in executed programs",
		stats.Simple, stats.Prometheus("memstress_instructions"))
	statWorkerTime = stats.Create("avg worker time ms", "Average lifetime of a worker process",
		stats.Distribution{}, stats.Console, stats.Prometheus("memstress_worker_avg_ms"))
)
