// Copyright 2021 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build linux

package osutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CreateSharedMemFile returns an anonymous memfd file, the name is only visible in /proc/pid/maps.
// The fd is close-on-exec, pass it to children with exec.Cmd.ExtraFiles.
func CreateSharedMemFile(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate("syz-memstress-"+name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create(%v) failed: %w", name, err)
	}
	return os.NewFile(uintptr(fd), "memfd:"+name), nil
}

func CloseSharedMemFile(f *os.File) error {
	return f.Close()
}
