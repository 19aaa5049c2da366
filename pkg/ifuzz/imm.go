// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ifuzz

import (
	"github.com/google/syz-memstress/pkg/ifuzz/x86"
)

var specialNumbers = []uint64{0, 1 << 15, 1 << 16, 1 << 31, 1 << 32, 1 << 47, 1 << 47, 1 << 63}

// imm returns an interesting immediate of the given size:
// small values, values around special boundaries and addresses within the data memory.
func (g *generator) imm(size x86.Size) uint64 {
	r := g.r
	var v uint64
	switch x := r.Intn(60); {
	case x < 10:
		v = uint64(r.Intn(1 << 4))
	case x < 20:
		v = uint64(r.Intn(1 << 16))
	case x < 25:
		v = uint64(r.Int63()) % (1 << 32)
	case x < 30:
		v = uint64(r.Int63())
	case x < 40:
		v = specialNumbers[r.Intn(len(specialNumbers))]
		if r.Intn(5) == 0 {
			v += uint64(r.Intn(33)) - 16
		}
	case x < 50 && g.cfg.DataSize != 0:
		start, size := g.cfg.DataBase, g.cfg.DataSize
		switch x := r.Intn(100); {
		case x < 25:
			v = start
		case x < 50:
			v = start + size
		case x < 75:
			v = start + size/2
		default:
			v = start + uint64(r.Int63())%size
		}
		if r.Intn(10) == 0 {
			v += uint64(r.Intn(33)) - 16
		}
	default:
		v = uint64(r.Intn(1 << 8))
	}
	if r.Intn(50) == 0 {
		v = uint64(-int64(v))
	}
	if r.Intn(50) == 0 && size != x86.Size8 {
		v &^= 1<<12 - 1
	}
	if size != x86.Size64 {
		v &= 1<<uint(size.Bits()) - 1
	}
	return v
}
