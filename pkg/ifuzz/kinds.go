// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ifuzz

import (
	"fmt"

	"github.com/google/syz-memstress/pkg/ifuzz/x86"
)

// Kind is a class of body instructions. Each kind has exactly one handler in kinds.
type Kind int

const (
	KindMovRR Kind = iota
	KindMovImm
	KindStore
	KindLoad
	KindXaddRR
	KindXaddMem
	KindXchgRR
	KindXchgMem
	KindMfence
	KindSfence
	KindLfence
	KindLast
)

type kindDesc struct {
	name string
	gen  func(g *generator) x86.Insn
}

var kinds = [KindLast]kindDesc{
	KindMovRR: {"mov_rr", func(g *generator) x86.Insn {
		dst, src := g.regs()
		return x86.MovRR(g.size(false, dst, src), dst, src)
	}},
	KindMovImm: {"mov_imm", func(g *generator) x86.Insn {
		dst := g.reg()
		size := g.size(false, dst)
		return x86.MovImm(size, dst, g.imm(size))
	}},
	KindStore: {"store", func(g *generator) x86.Insn {
		src := g.reg()
		return x86.Store(g.size(false, src), DataReg, g.disp(), src)
	}},
	KindLoad: {"load", func(g *generator) x86.Insn {
		dst := g.reg()
		return x86.Load(g.size(false, dst), dst, DataReg, g.disp())
	}},
	KindXaddRR: {"xadd_rr", func(g *generator) x86.Insn {
		dst, src := g.regs()
		return x86.Xadd(g.size(true, dst, src), dst, src)
	}},
	KindXaddMem: {"xadd_mem", func(g *generator) x86.Insn {
		src := g.reg()
		return x86.XaddMem(g.size(true, src), DataReg, g.disp(), src, g.lock())
	}},
	KindXchgRR: {"xchg_rr", func(g *generator) x86.Insn {
		dst, src := g.regs()
		return x86.Xchg(g.size(true, dst, src), dst, src)
	}},
	KindXchgMem: {"xchg_mem", func(g *generator) x86.Insn {
		src := g.reg()
		return x86.XchgMem(g.size(true, src), DataReg, g.disp(), src, g.lock())
	}},
	KindMfence: {"mfence", func(g *generator) x86.Insn { return x86.Mfence() }},
	KindSfence: {"sfence", func(g *generator) x86.Insn { return x86.Sfence() }},
	KindLfence: {"lfence", func(g *generator) x86.Insn { return x86.Lfence() }},
}

func (k Kind) String() string {
	if k < 0 || k >= KindLast {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}
