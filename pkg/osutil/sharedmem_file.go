// Copyright 2021 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build freebsd || netbsd || openbsd || darwin

package osutil

import (
	"errors"
	"fmt"
	"os"
)

// CreateSharedMemFile creates a temp file instead of a memfd.
// The file is removed by CloseSharedMemFile.
func CreateSharedMemFile(name string) (*os.File, error) {
	f, err := os.CreateTemp("", "syz-memstress-"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared mem file: %w", err)
	}
	return f, nil
}

func CloseSharedMemFile(f *os.File) error {
	return errors.Join(f.Close(), os.Remove(f.Name()))
}
