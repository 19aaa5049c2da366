// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package region manages the shared executable memory used by stress workers.
// There are three regions (data, code and comm), each one is a shared memory file mapped
// read/write/execute and split into equal per-worker slices. Worker processes map the same
// files, so all of them race on the same physical pages.
package region

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/google/syz-memstress/pkg/osutil"
)

// Layout is the per-worker size of every region.
type Layout struct {
	Data int `json:"data"`
	Code int `json:"code"`
	Comm int `json:"comm"`
}

func DefaultLayout() Layout {
	return Layout{
		Data: 10 << 10,
		Code: 10000,
		Comm: 4 << 10,
	}
}

func (l Layout) Validate() error {
	if l.Data <= 0 || l.Code <= 0 || l.Comm <= 0 {
		return fmt.Errorf("bad region layout %+v: all strides must be positive", l)
	}
	return nil
}

var ErrReleased = errors.New("regions are already released")

// Region is one shared mapping split into per-worker slices.
type Region struct {
	Name   string
	Stride int
	Size   int // Stride*workers rounded up to the page size
	file   *os.File
	mem    []byte
}

// Base is the address of the mapping in this process.
func (r *Region) Base() uint64 {
	return uint64(uintptr(unsafe.Pointer(&r.mem[0])))
}

// Slice returns memory of the given worker.
func (r *Region) Slice(worker int) []byte {
	off := worker * r.Stride
	return r.mem[off : off+r.Stride : off+r.Stride]
}

// SliceBase is the address of the worker's slice in this process.
func (r *Region) SliceBase(worker int) uint64 {
	return r.Base() + uint64(worker*r.Stride)
}

func (r *Region) File() *os.File {
	return r.file
}

func (r *Region) String() string {
	return fmt.Sprintf("%v: 0x%x-0x%x (%v bytes, stride %v)", r.Name, r.Base(), r.Base()+uint64(r.Size),
		r.Size, r.Stride)
}

// Set holds all regions of a run.
type Set struct {
	Data    *Region
	Code    *Region
	Comm    *Region
	Workers int

	mu       sync.Mutex
	released bool
	attached bool // files belong to another process
}

// Create allocates all regions for the given number of workers.
// Failure to map any region releases the already mapped ones.
func Create(layout Layout, workers int) (*Set, error) {
	return setup(layout, workers, nil)
}

// Attach maps regions created by another process.
// files are the data, code and comm files in that order, as returned by Files.
func Attach(layout Layout, workers int, files []*os.File) (*Set, error) {
	if len(files) != 3 {
		return nil, fmt.Errorf("need 3 region files, got %v", len(files))
	}
	return setup(layout, workers, files)
}

func setup(layout Layout, workers int, files []*os.File) (*Set, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		return nil, fmt.Errorf("bad number of workers %v", workers)
	}
	s := &Set{Workers: workers, attached: files != nil}
	dst := []**Region{&s.Data, &s.Code, &s.Comm}
	for i, desc := range []struct {
		name   string
		stride int
	}{
		{"data", layout.Data},
		{"code", layout.Code},
		{"comm", layout.Comm},
	} {
		r := &Region{
			Name:   desc.name,
			Stride: desc.stride,
			Size:   RoundUp(desc.stride*workers, osutil.PageSize()),
		}
		var err error
		if files == nil {
			r.file, r.mem, err = osutil.CreateMemMappedFile(r.Name, r.Size, osutil.ProtRWX)
		} else {
			r.file = files[i]
			r.mem, err = osutil.MapFile(r.file, r.Size, osutil.ProtRWX)
		}
		if err != nil {
			s.release()
			return nil, fmt.Errorf("failed to map %v region (%v bytes): %w", desc.name, r.Size, err)
		}
		*dst[i] = r
	}
	return s, nil
}

// Files returns the backing files to be passed to worker processes.
func (s *Set) Files() []*os.File {
	return []*os.File{s.Data.file, s.Code.file, s.Comm.file}
}

// Close unmaps and releases all regions. Only the first call succeeds.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	s.released = true
	return s.release()
}

func (s *Set) release() error {
	var errs []error
	for _, r := range []*Region{s.Data, s.Code, s.Comm} {
		if r == nil {
			continue
		}
		var err error
		if s.attached {
			err = errors.Join(osutil.UnmapFile(r.mem), r.file.Close())
		} else {
			err = osutil.CloseMemMappedFile(r.file, r.mem)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%v region: %w", r.Name, err))
		}
		r.mem = nil
	}
	return errors.Join(errs...)
}

// RoundUp rounds v up to a multiple of align, align must be a power of 2.
func RoundUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}
