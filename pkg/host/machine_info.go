// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package host

import (
	"bufio"
	"bytes"
	"fmt"
	"runtime"
	"strings"
)

type MachineInfo struct {
	Model  string
	CPUs   int // CPUs usable by this process
	Online int // CPUs listed in cpuinfo
	// Whether fences and atomics under test are advertised.
	SSE2 bool
}

func (mi *MachineInfo) String() string {
	return fmt.Sprintf("%v, %v cpus (%v online), sse2=%v", mi.Model, mi.CPUs, mi.Online, mi.SSE2)
}

// CollectMachineInfo describes the CPUs of the machine.
func CollectMachineInfo() (*MachineInfo, error) {
	mi := &MachineInfo{
		Model: runtime.GOARCH,
		CPUs:  runtime.NumCPU(),
	}
	data, err := readCPUInfo()
	if err != nil {
		return nil, err
	}
	if data != nil {
		parseCPUInfo(mi, data)
	}
	return mi, nil
}

func parseCPUInfo(mi *MachineInfo, data []byte) {
	for s := bufio.NewScanner(bytes.NewReader(data)); s.Scan(); {
		key, val, ok := strings.Cut(s.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "processor":
			mi.Online++
		case "model name":
			mi.Model = val
		case "flags":
			for _, flag := range strings.Fields(val) {
				if flag == "sse2" {
					mi.SSE2 = true
				}
			}
		}
	}
}
