// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package ifuzz generates random x86-64 programs that race on shared memory with moves,
// atomic exchanges and fences. Every program is a self-contained function:
// a fixed prologue, a load of the data base into RSI, a random body and the matching epilogue.
package ifuzz

import (
	"fmt"
	"math/rand"

	"github.com/google/syz-memstress/pkg/ifuzz/x86"
)

type Config struct {
	Seed     int64
	Worker   int
	Len      int    // number of body instructions to generate
	DataBase uint64 // address loaded into DataReg, base of all memory operands
	DataSize uint64 // size of the memory at DataBase, used to make interesting immediates
	// Trace is called for every emitted body instruction, if set.
	Trace func(ev *Event)
}

// Event describes one generated body instruction.
type Event struct {
	N      int // index in the body
	Kind   Kind
	Insn   x86.Insn
	Offset int // offset from the program start
	Text   []byte
}

type Program struct {
	Code  []byte
	Insns int // setup load plus body instructions
	// Body is the offset of the first body instruction.
	Body  int
	Kinds [KindLast]int
}

const (
	FrameSize = 2048
	// DataReg holds the data base during the whole body.
	DataReg = x86.RSI

	// Largest displacement used for memory operands (exclusive).
	MaxDisp = 2000
	// Data every worker may touch starting at DataBase.
	DataSpan = MaxDisp + 8
)

// CalleeSaved are pushed by the prologue in this order and popped in reverse.
var CalleeSaved = []x86.Reg{x86.RBX, x86.R12, x86.R13, x86.R14, x86.R15}

// Registers the body may use. RSP and RBP hold the frame, RSI holds the data base.
// R12 and R13 are never chosen: as a memory base they need SIB or turn RIP-relative.
var selectable = []x86.Reg{
	x86.RAX, x86.RCX, x86.RDX, x86.RBX, x86.RDI,
	x86.R8, x86.R9, x86.R10, x86.R11, x86.R14, x86.R15,
}

const (
	prologueLen = 4 + 1 + 2*4 // enter, push rbx, push r12-r15
	setupLen    = 10
	epilogueLen = 1 + 2*4 + 1 + 1
	// Longest body instruction: lock xadd word [rsi+disp32], r8w and mov r64, imm64.
	maxBodyInsnLen = 10
)

// MaxSize is an upper bound on the size of a program with n body instructions.
func MaxSize(n int) int {
	return prologueLen + setupLen + n*maxBodyInsnLen + epilogueLen
}

// Generate writes the program for cfg into w.
// On failure the contents of w past its initial position must not be used.
func Generate(cfg *Config, w *x86.Writer) (*Program, error) {
	if cfg.Len < 0 {
		return nil, fmt.Errorf("bad instruction count %v", cfg.Len)
	}
	g := &generator{
		cfg: cfg,
		r:   rand.New(rand.NewSource(cfg.Seed + int64(cfg.Worker))),
		w:   w,
	}
	start := w.Pos()
	p := new(Program)
	if err := g.emitAll(prologue()); err != nil {
		return nil, fmt.Errorf("prologue: %w", err)
	}
	if _, err := w.Emit(x86.MovImm(x86.Size64, DataReg, cfg.DataBase)); err != nil {
		return nil, fmt.Errorf("data base load: %w", err)
	}
	p.Insns++
	p.Body = w.Pos() - start
	for i := 0; i < cfg.Len; i++ {
		kind := Kind(g.r.Intn(int(KindLast)))
		insn := kinds[kind].gen(g)
		off, err := w.Emit(insn)
		if err != nil {
			return nil, fmt.Errorf("instruction %v (%v): %w", i, insn, err)
		}
		p.Insns++
		p.Kinds[kind]++
		if cfg.Trace != nil {
			cfg.Trace(&Event{
				N:      i,
				Kind:   kind,
				Insn:   insn,
				Offset: off - start,
				Text:   w.Bytes()[off:],
			})
		}
	}
	if err := g.emitAll(epilogue()); err != nil {
		return nil, fmt.Errorf("epilogue: %w", err)
	}
	p.Code = w.Bytes()[start:]
	return p, nil
}

func prologue() []x86.Insn {
	insns := []x86.Insn{x86.Enter(FrameSize, 0)}
	for _, r := range CalleeSaved {
		insns = append(insns, x86.Push(r))
	}
	return insns
}

func epilogue() []x86.Insn {
	var insns []x86.Insn
	for i := len(CalleeSaved) - 1; i >= 0; i-- {
		insns = append(insns, x86.Pop(CalleeSaved[i]))
	}
	return append(insns, x86.Leave(), x86.Ret())
}

type generator struct {
	cfg *Config
	r   *rand.Rand
	w   *x86.Writer
}

func (g *generator) emitAll(insns []x86.Insn) error {
	for _, insn := range insns {
		if _, err := g.w.Emit(insn); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) reg() x86.Reg {
	return selectable[g.r.Intn(len(selectable))]
}

// regs returns two distinct registers.
func (g *generator) regs() (x86.Reg, x86.Reg) {
	a := g.r.Intn(len(selectable))
	b := g.r.Intn(len(selectable) - 1)
	if b >= a {
		b++
	}
	return selectable[a], selectable[b]
}

var (
	movSizes         = []x86.Size{x86.Size8, x86.Size16, x86.Size32, x86.Size64}
	movSizesExtended = []x86.Size{x86.Size8, x86.Size32, x86.Size64}
	rmwSizes         = []x86.Size{x86.Size8, x86.Size16, x86.Size32}
	rmwSizesExtended = []x86.Size{x86.Size8, x86.Size32}
)

// size picks an operand size; 16-bit forms are not combined with R8-R15.
func (g *generator) size(rmw bool, regs ...x86.Reg) x86.Size {
	extended := false
	for _, r := range regs {
		extended = extended || r.Extended()
	}
	sizes := movSizes
	switch {
	case rmw && extended:
		sizes = rmwSizesExtended
	case rmw:
		sizes = rmwSizes
	case extended:
		sizes = movSizesExtended
	}
	return sizes[g.r.Intn(len(sizes))]
}

func (g *generator) disp() int32 {
	switch g.r.Intn(3) {
	case 0:
		return 0
	case 1:
		return int32(1 + g.r.Intn(127))
	default:
		return int32(128 + g.r.Intn(MaxDisp-128))
	}
}

func (g *generator) lock() bool {
	return g.r.Intn(2) == 0
}
