// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	code := []byte{0xc8, 0x00, 0x08, 0x00, 0xc9, 0xc3}
	sig := Hash(code)
	assert.Equal(t, sig, Hash(code[:2], code[2:]))
	assert.Equal(t, sig.String(), String(code))
	assert.NotEqual(t, sig, Hash(code[:5]))
	assert.Len(t, sig.Short(), 12)
	got, err := FromString(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	_, err = FromString("zz")
	assert.Error(t, err)
	_, err = FromString("abcd")
	assert.Error(t, err)
}
