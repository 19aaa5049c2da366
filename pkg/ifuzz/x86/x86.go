// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package x86 encodes the small subset of x86-64 instructions used by memory ordering stress programs:
// register/immediate/memory moves, XADD, XCHG, fences and the stack frame helpers.
// It is not a general purpose assembler: there are no labels, no SIB addressing and no relocations.
package x86

import (
	"fmt"
)

// Reg is one of the 16 general purpose registers, numbered as in the ModR/M tables.
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	NumRegs
)

// Extended registers need REX.R/REX.B to be addressed.
func (r Reg) Extended() bool {
	return r >= R8
}

func (r Reg) low() byte {
	return byte(r) & 7
}

// byteNeedsRex is true for SPL, BPL, SIL and DIL: without REX the same encodings select AH..BH.
func (r Reg) byteNeedsRex() bool {
	return r >= RSP && r <= RDI
}

func (r Reg) valid() bool {
	return r < NumRegs
}

var regNames = [NumRegs][4]string{
	{"al", "ax", "eax", "rax"},
	{"cl", "cx", "ecx", "rcx"},
	{"dl", "dx", "edx", "rdx"},
	{"bl", "bx", "ebx", "rbx"},
	{"spl", "sp", "esp", "rsp"},
	{"bpl", "bp", "ebp", "rbp"},
	{"sil", "si", "esi", "rsi"},
	{"dil", "di", "edi", "rdi"},
	{"r8b", "r8w", "r8d", "r8"},
	{"r9b", "r9w", "r9d", "r9"},
	{"r10b", "r10w", "r10d", "r10"},
	{"r11b", "r11w", "r11d", "r11"},
	{"r12b", "r12w", "r12d", "r12"},
	{"r13b", "r13w", "r13d", "r13"},
	{"r14b", "r14w", "r14d", "r14"},
	{"r15b", "r15w", "r15d", "r15"},
}

func (r Reg) String() string {
	return r.Name(Size64)
}

// Name returns the register name for the given operand width.
func (r Reg) Name(size Size) string {
	if !r.valid() {
		return fmt.Sprintf("reg%d", uint8(r))
	}
	switch size {
	case Size8:
		return regNames[r][0]
	case Size16:
		return regNames[r][1]
	case Size32:
		return regNames[r][2]
	default:
		return regNames[r][3]
	}
}

// Size is operand width in bytes.
type Size uint8

const (
	SizeNone Size = 0
	Size8    Size = 1
	Size16   Size = 2
	Size32   Size = 4
	Size64   Size = 8
)

func (s Size) Valid() bool {
	return s == Size8 || s == Size16 || s == Size32 || s == Size64
}

func (s Size) Bits() int {
	return int(s) * 8
}

// DispKind is the encoded width of a memory displacement, it also selects the ModR/M mod field.
type DispKind uint8

const (
	DispNone  DispKind = iota // mod=00
	DispByte                  // mod=01, disp8
	DispDWord                 // mod=10, disp32
)

func (k DispKind) String() string {
	switch k {
	case DispNone:
		return "none"
	case DispByte:
		return "disp8"
	case DispDWord:
		return "disp32"
	}
	return fmt.Sprintf("DispKind(%d)", uint8(k))
}

// Disp is a signed memory operand offset together with its encoding class.
type Disp struct {
	Kind  DispKind
	Value int32
}

// MakeDisp selects the smallest encoding that holds v.
func MakeDisp(v int32) Disp {
	switch {
	case v == 0:
		return Disp{DispNone, 0}
	case v >= -128 && v <= 127:
		return Disp{DispByte, v}
	default:
		return Disp{DispDWord, v}
	}
}

// Len is the number of displacement bytes following ModR/M.
func (d Disp) Len() int {
	switch d.Kind {
	case DispByte:
		return 1
	case DispDWord:
		return 4
	}
	return 0
}

func (d Disp) fits() bool {
	switch d.Kind {
	case DispNone:
		return d.Value == 0
	case DispByte:
		return d.Value >= -128 && d.Value <= 127
	case DispDWord:
		return true
	}
	return false
}

func (d Disp) mod() byte {
	switch d.Kind {
	case DispByte:
		return modDisp8
	case DispDWord:
		return modDisp32
	}
	return modIndirect
}

func (d Disp) String() string {
	if d.Kind == DispNone {
		return ""
	}
	if d.Value < 0 {
		return fmt.Sprintf("-0x%x", -int64(d.Value))
	}
	return fmt.Sprintf("+0x%x", d.Value)
}

// ModR/M mod field values.
const (
	modIndirect = 0
	modDisp8    = 1
	modDisp32   = 2
	modReg      = 3
)

// Prefix and REX bits.
const (
	prefixLock   = 0xf0
	prefixOpSize = 0x66

	rexBase = 0x40
	rexW    = 0x08 // 64-bit operand size
	rexR    = 0x04 // extension of the ModR/M reg field
	rexX    = 0x02 // extension of the SIB index field
	rexB    = 0x01 // extension of the ModR/M r/m field or the opcode register
)

func modrm(mod byte, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | rm&7
}
