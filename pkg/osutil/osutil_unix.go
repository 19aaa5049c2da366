// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build freebsd || netbsd || openbsd || linux || darwin

package osutil

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ProcessExitStatus returns process exit status.
func ProcessExitStatus(ps *os.ProcessState) int {
	return ps.Sys().(syscall.WaitStatus).ExitStatus()
}

// Memory protection for shared mappings.
const (
	ProtRW  = unix.PROT_READ | unix.PROT_WRITE
	ProtRWX = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

// CreateMemMappedFile creates a named shared memory file of the given size and maps it with prot.
func CreateMemMappedFile(name string, size, prot int) (*os.File, []byte, error) {
	f, err := CreateSharedMemFile(name)
	if err != nil {
		return nil, nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		CloseSharedMemFile(f)
		return nil, nil, fmt.Errorf("failed to truncate %v to %v: %w", name, size, err)
	}
	mem, err := MapFile(f, size, prot)
	if err != nil {
		CloseSharedMemFile(f)
		return nil, nil, err
	}
	return f, mem, nil
}

// MapFile maps size bytes of f shared, so that all processes mapping the file see the same memory.
func MapFile(f *os.File, size, prot int) ([]byte, error) {
	mem, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %v: %w", f.Name(), err)
	}
	return mem, nil
}

func UnmapFile(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("failed to munmap: %w", err)
	}
	return nil
}

// CloseMemMappedFile destroys memory mapping created by CreateMemMappedFile.
func CloseMemMappedFile(f *os.File, mem []byte) error {
	return errors.Join(UnmapFile(mem), CloseSharedMemFile(f))
}

func PageSize() int {
	return unix.Getpagesize()
}
