// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindCPU(t *testing.T) {
	cpus, err := Affinity()
	require.NoError(t, err)
	require.NotEmpty(t, cpus)
	for _, cpu := range []int{cpus[0], cpus[len(cpus)-1]} {
		errc := make(chan error)
		after := make(chan []int, 1)
		// The goroutine exits locked, so the pinned thread is destroyed.
		go func() {
			err := BindCPU(cpu)
			got, _ := Affinity()
			after <- got
			errc <- err
		}()
		got := <-after
		require.NoError(t, <-errc)
		assert.Equal(t, []int{cpu}, got)
	}
	// Affinity of the test goroutine is not affected.
	now, err := Affinity()
	require.NoError(t, err)
	if len(cpus) > 1 {
		assert.Greater(t, len(now), 1)
	}
}

func TestBindBadCPU(t *testing.T) {
	errc := make(chan error)
	go func() {
		errc <- BindCPU(-1)
	}()
	assert.Error(t, <-errc)
}
