// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build linux

package region

import (
	"os"
	"testing"

	"github.com/google/syz-memstress/pkg/osutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRoundUp(t *testing.T) {
	assert.Equal(t, 0, RoundUp(0, 4096))
	assert.Equal(t, 4096, RoundUp(1, 4096))
	assert.Equal(t, 4096, RoundUp(4096, 4096))
	assert.Equal(t, 8192, RoundUp(4097, 4096))
	assert.Equal(t, 32768, RoundUp(30000, 4096))
}

func TestCreate(t *testing.T) {
	layout := DefaultLayout()
	const workers = 3
	s, err := Create(layout, workers)
	require.NoError(t, err)
	page := osutil.PageSize()
	for _, r := range []*Region{s.Data, s.Code, s.Comm} {
		assert.Zero(t, r.Size%page, r.Name)
		assert.GreaterOrEqual(t, r.Size, r.Stride*workers, r.Name)
		assert.Less(t, r.Size-r.Stride*workers, page, r.Name)
		assert.Zero(t, r.Base()%uint64(page), r.Name)
		for w := 0; w < workers; w++ {
			slice := r.Slice(w)
			assert.Len(t, slice, r.Stride)
			assert.Equal(t, r.SliceBase(w), r.Base()+uint64(w*r.Stride))
			slice[0] = byte(w + 1)
			slice[len(slice)-1] = byte(w + 1)
		}
		// Slices do not overlap.
		for w := 0; w < workers; w++ {
			assert.Equal(t, byte(w+1), r.Slice(w)[0])
			assert.Equal(t, byte(w+1), r.Slice(w)[r.Stride-1])
		}
	}
	assert.Equal(t, layout.Code, s.Code.Stride)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrReleased)
}

func dup(t *testing.T, f *os.File) *os.File {
	fd, err := unix.Dup(int(f.Fd()))
	require.NoError(t, err)
	return os.NewFile(uintptr(fd), f.Name())
}

func TestAttach(t *testing.T) {
	layout := Layout{Data: 100, Code: 200, Comm: 300}
	s, err := Create(layout, 2)
	require.NoError(t, err)
	defer s.Close()
	var files []*os.File
	for _, f := range s.Files() {
		files = append(files, dup(t, f))
	}
	s2, err := Attach(layout, 2, files)
	require.NoError(t, err)
	s.Code.Slice(1)[5] = 0xc3
	assert.Equal(t, byte(0xc3), s2.Code.Slice(1)[5])
	s2.Data.Slice(0)[99] = 0x42
	assert.Equal(t, byte(0x42), s.Data.Slice(0)[99])
	require.NoError(t, s2.Close())
	// The original mapping survives release of the attached one.
	assert.Equal(t, byte(0x42), s.Data.Slice(0)[99])
}

func TestBadArgs(t *testing.T) {
	_, err := Create(Layout{Data: 0, Code: 1, Comm: 1}, 1)
	assert.Error(t, err)
	_, err = Create(DefaultLayout(), 0)
	assert.Error(t, err)
	_, err = Attach(DefaultLayout(), 1, nil)
	assert.Error(t, err)
}
