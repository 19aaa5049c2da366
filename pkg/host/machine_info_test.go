// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCPUInfo(t *testing.T) {
	data := []byte(`processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) CPU @ 2.20GHz
flags		: fpu vme sse sse2 ht syscall

processor	: 1
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) CPU @ 2.20GHz
flags		: fpu vme sse sse2 ht syscall
`)
	mi := new(MachineInfo)
	parseCPUInfo(mi, data)
	assert.Equal(t, "Intel(R) Xeon(R) CPU @ 2.20GHz", mi.Model)
	assert.Equal(t, 2, mi.Online)
	assert.True(t, mi.SSE2)
}

func TestCollectMachineInfo(t *testing.T) {
	mi, err := CollectMachineInfo()
	require.NoError(t, err)
	assert.Positive(t, mi.CPUs)
	assert.NotEmpty(t, mi.Model)
	t.Logf("%v", mi)
}
