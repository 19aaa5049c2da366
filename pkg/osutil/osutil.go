// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"fmt"
	"os"
	"os/exec"
)

const DefaultFilePerm = 0644

// Command is similar to os/exec.Command, but on linux the child is killed when the parent dies.
// Workers must not outlive the process that owns their regions.
func Command(bin string, args ...string) *exec.Cmd {
	cmd := exec.Command(bin, args...)
	setPdeathsig(cmd)
	return cmd
}

func WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, DefaultFilePerm)
}

// Executable returns the path to the running binary, it is used to re-execute it in worker mode.
func Executable() (string, error) {
	bin, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to find own executable: %w", err)
	}
	if _, err := os.Stat(bin); err != nil {
		return "", fmt.Errorf("own executable is not accessible: %w", err)
	}
	return bin, nil
}
