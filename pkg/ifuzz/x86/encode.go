// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package x86

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Op is an instruction mnemonic together with its operand direction.
type Op uint8

const (
	OpInvalid Op = iota
	OpMovRegReg
	OpMovImmReg
	OpMovRegMem // store: [RM+disp] = Reg
	OpMovMemReg // load: Reg = [RM+disp]
	OpXaddRegReg
	OpXaddMem
	OpXchgRegReg
	OpXchgMem
	OpMfence
	OpSfence
	OpLfence
	OpEnter
	OpLeave
	OpRet
	OpPush
	OpPop
	opLast
)

var opNames = [opLast]string{
	OpInvalid:    "invalid",
	OpMovRegReg:  "mov",
	OpMovImmReg:  "mov",
	OpMovRegMem:  "mov",
	OpMovMemReg:  "mov",
	OpXaddRegReg: "xadd",
	OpXaddMem:    "xadd",
	OpXchgRegReg: "xchg",
	OpXchgMem:    "xchg",
	OpMfence:     "mfence",
	OpSfence:     "sfence",
	OpLfence:     "lfence",
	OpEnter:      "enter",
	OpLeave:      "leave",
	OpRet:        "ret",
	OpPush:       "push",
	OpPop:        "pop",
}

func (op Op) String() string {
	if op >= opLast {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return opNames[op]
}

// HasMemory is true for ops whose r/m operand is a memory reference.
func (op Op) HasMemory() bool {
	return op == OpMovRegMem || op == OpMovMemReg || op == OpXaddMem || op == OpXchgMem
}

// Lockable ops accept the LOCK prefix.
func (op Op) Lockable() bool {
	return op == OpXaddMem || op == OpXchgMem
}

// MaxInsnLen is the architectural limit on instruction length.
const MaxInsnLen = 15

var (
	ErrBufferOverflow     = errors.New("instruction buffer overflow")
	ErrUnsupportedSize    = errors.New("unsupported operand size")
	ErrUnsupportedOperand = errors.New("unsupported operand")
	ErrLockNotAllowed     = errors.New("lock prefix is not allowed")
)

// EncodingError describes an instruction that could not be encoded.
// It unwraps to one of the Err* values above.
type EncodingError struct {
	Insn Insn
	Err  error
}

func (err *EncodingError) Error() string {
	return fmt.Sprintf("encoding %v (size %v): %v", err.Insn.Op, err.Insn.Size, err.Err)
}

func (err *EncodingError) Unwrap() error {
	return err.Err
}

// Insn is an abstract instruction.
// Reg is the ModR/M reg field operand, RM is the r/m register or the memory base.
// Imm holds the immediate for register moves and the frame size for ENTER.
type Insn struct {
	Op      Op
	Size    Size
	Reg     Reg
	RM      Reg
	Disp    Disp
	Imm     uint64
	Nesting uint8 // ENTER nesting level
	Lock    bool
}

func MovRR(size Size, dst, src Reg) Insn {
	return Insn{Op: OpMovRegReg, Size: size, Reg: dst, RM: src}
}

func MovImm(size Size, dst Reg, imm uint64) Insn {
	return Insn{Op: OpMovImmReg, Size: size, RM: dst, Imm: imm}
}

func Store(size Size, base Reg, disp int32, src Reg) Insn {
	return Insn{Op: OpMovRegMem, Size: size, Reg: src, RM: base, Disp: MakeDisp(disp)}
}

func Load(size Size, dst, base Reg, disp int32) Insn {
	return Insn{Op: OpMovMemReg, Size: size, Reg: dst, RM: base, Disp: MakeDisp(disp)}
}

func Xadd(size Size, dst, src Reg) Insn {
	return Insn{Op: OpXaddRegReg, Size: size, Reg: src, RM: dst}
}

func XaddMem(size Size, base Reg, disp int32, src Reg, lock bool) Insn {
	return Insn{Op: OpXaddMem, Size: size, Reg: src, RM: base, Disp: MakeDisp(disp), Lock: lock}
}

func Xchg(size Size, dst, src Reg) Insn {
	return Insn{Op: OpXchgRegReg, Size: size, Reg: src, RM: dst}
}

func XchgMem(size Size, base Reg, disp int32, src Reg, lock bool) Insn {
	return Insn{Op: OpXchgMem, Size: size, Reg: src, RM: base, Disp: MakeDisp(disp), Lock: lock}
}

func Mfence() Insn { return Insn{Op: OpMfence} }
func Sfence() Insn { return Insn{Op: OpSfence} }
func Lfence() Insn { return Insn{Op: OpLfence} }
func Leave() Insn  { return Insn{Op: OpLeave} }
func Ret() Insn    { return Insn{Op: OpRet} }

func Enter(frame uint16, nesting uint8) Insn {
	return Insn{Op: OpEnter, Imm: uint64(frame), Nesting: nesting}
}

func Push(r Reg) Insn {
	return Insn{Op: OpPush, Size: Size64, RM: r}
}

func Pop(r Reg) Insn {
	return Insn{Op: OpPop, Size: Size64, RM: r}
}

// Encode returns the machine code for insn.
func (insn Insn) Encode() ([]byte, error) {
	var buf [MaxInsnLen]byte
	n, err := insn.encode(&buf)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), buf[:n]...), nil
}

// Len returns the encoded length of insn.
func (insn Insn) Len() (int, error) {
	var buf [MaxInsnLen]byte
	return insn.encode(&buf)
}

type opcodes struct {
	op8    []byte // opcode for 8-bit operands, nil if unsupported
	op1632 []byte // opcode for 16/32-bit operands
	rexW   bool   // the 16/32-bit opcode also takes REX.W for 64-bit operands
}

var modrmOpcodes = map[Op]opcodes{
	OpMovRegReg:  {[]byte{0x8a}, []byte{0x8b}, true},
	OpMovRegMem:  {[]byte{0x88}, []byte{0x89}, true},
	OpMovMemReg:  {[]byte{0x8a}, []byte{0x8b}, true},
	OpXaddRegReg: {[]byte{0x0f, 0xc0}, []byte{0x0f, 0xc1}, false},
	OpXaddMem:    {[]byte{0x0f, 0xc0}, []byte{0x0f, 0xc1}, false},
	OpXchgRegReg: {[]byte{0x86}, []byte{0x87}, false},
	OpXchgMem:    {[]byte{0x86}, []byte{0x87}, false},
}

var fences = map[Op]byte{
	OpMfence: 0xf0,
	OpSfence: 0xf8,
	OpLfence: 0xe8,
}

// encoder accumulates bytes of a single instruction.
type encoder struct {
	buf *[MaxInsnLen]byte
	n   int
}

func (e *encoder) emit(b ...byte) {
	e.n += copy(e.buf[e.n:], b)
}

func (e *encoder) emit16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[e.n:], v)
	e.n += 2
}

func (e *encoder) emit32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.n:], v)
	e.n += 4
}

func (e *encoder) emit64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.n:], v)
	e.n += 8
}

func (insn *Insn) fail(err error) (int, error) {
	return 0, &EncodingError{Insn: *insn, Err: err}
}

func (insn *Insn) encode(buf *[MaxInsnLen]byte) (int, error) {
	if !insn.Reg.valid() || !insn.RM.valid() {
		return insn.fail(ErrUnsupportedOperand)
	}
	if insn.Lock && !insn.Op.Lockable() {
		return insn.fail(ErrLockNotAllowed)
	}
	e := &encoder{buf: buf}
	switch insn.Op {
	case OpMovRegReg, OpMovRegMem, OpMovMemReg, OpXaddRegReg, OpXaddMem, OpXchgRegReg, OpXchgMem:
		return insn.encodeModrm(e)
	case OpMovImmReg:
		return insn.encodeMovImm(e)
	case OpMfence, OpSfence, OpLfence:
		e.emit(0x0f, 0xae, fences[insn.Op])
	case OpEnter:
		if insn.Imm > 0xffff {
			return insn.fail(ErrUnsupportedOperand)
		}
		e.emit(0xc8)
		e.emit16(uint16(insn.Imm))
		e.emit(insn.Nesting)
	case OpLeave:
		e.emit(0xc9)
	case OpRet:
		e.emit(0xc3)
	case OpPush, OpPop:
		if insn.RM.Extended() {
			e.emit(rexBase | rexB)
		}
		base := byte(0x50)
		if insn.Op == OpPop {
			base = 0x58
		}
		e.emit(base + insn.RM.low())
	default:
		return insn.fail(ErrUnsupportedOperand)
	}
	return e.n, nil
}

// rex computes the REX prefix for an instruction with the given reg-field and r/m-field registers.
// The second result says whether the prefix must be emitted.
func rex(size Size, reg, rm Reg, hasReg bool) (byte, bool) {
	b := byte(rexBase)
	need := false
	if size == Size64 {
		b |= rexW
		need = true
	}
	if hasReg && reg.Extended() {
		b |= rexR
		need = true
	}
	if rm.Extended() {
		b |= rexB
		need = true
	}
	if size == Size8 && (rm.byteNeedsRex() || hasReg && reg.byteNeedsRex()) {
		need = true
	}
	return b, need
}

// prefixes emits LOCK, operand-size and REX in that order.
// REX has to immediately precede the opcode, otherwise the CPU ignores it.
func (insn *Insn) prefixes(e *encoder, hasReg bool) {
	if insn.Lock {
		e.emit(prefixLock)
	}
	if insn.Size == Size16 {
		e.emit(prefixOpSize)
	}
	if b, ok := rex(insn.Size, insn.Reg, insn.RM, hasReg); ok {
		e.emit(b)
	}
}

func (insn *Insn) encodeModrm(e *encoder) (int, error) {
	ops := modrmOpcodes[insn.Op]
	var opcode []byte
	switch insn.Size {
	case Size8:
		opcode = ops.op8
	case Size16, Size32:
		opcode = ops.op1632
	case Size64:
		if ops.rexW {
			opcode = ops.op1632
		}
	}
	if opcode == nil {
		return insn.fail(ErrUnsupportedSize)
	}
	mod := byte(modReg)
	if insn.Op.HasMemory() {
		low := insn.RM.low()
		if low == RSP.low() || (low == RBP.low() && insn.Disp.Kind == DispNone) {
			// Would need a SIB byte or turn into RIP-relative addressing.
			return insn.fail(ErrUnsupportedOperand)
		}
		if !insn.Disp.fits() {
			return insn.fail(ErrUnsupportedOperand)
		}
		mod = insn.Disp.mod()
	}
	insn.prefixes(e, true)
	e.emit(opcode...)
	e.emit(modrm(mod, insn.Reg.low(), insn.RM.low()))
	if insn.Op.HasMemory() {
		switch insn.Disp.Kind {
		case DispByte:
			e.emit(byte(int8(insn.Disp.Value)))
		case DispDWord:
			e.emit32(uint32(insn.Disp.Value))
		}
	}
	return e.n, nil
}

func (insn *Insn) encodeMovImm(e *encoder) (int, error) {
	if !insn.Size.Valid() {
		return insn.fail(ErrUnsupportedSize)
	}
	insn.prefixes(e, false)
	switch insn.Size {
	case Size8:
		e.emit(0xc6, modrm(modReg, 0, insn.RM.low()), byte(insn.Imm))
	case Size16:
		e.emit(0xc7, modrm(modReg, 0, insn.RM.low()))
		e.emit16(uint16(insn.Imm))
	case Size32:
		e.emit(0xc7, modrm(modReg, 0, insn.RM.low()))
		e.emit32(uint32(insn.Imm))
	case Size64:
		// REX.W is already emitted, B8+r takes a full 64-bit immediate.
		e.emit(0xb8 + insn.RM.low())
		e.emit64(insn.Imm)
	}
	return e.n, nil
}

func (insn Insn) String() string {
	mem := func() string {
		return fmt.Sprintf("[%v%v]", insn.RM, insn.Disp)
	}
	lock := ""
	if insn.Lock {
		lock = "lock "
	}
	switch insn.Op {
	case OpMovRegReg:
		return fmt.Sprintf("mov %v, %v", insn.Reg.Name(insn.Size), insn.RM.Name(insn.Size))
	case OpMovImmReg:
		return fmt.Sprintf("mov %v, 0x%x", insn.RM.Name(insn.Size), insn.Imm)
	case OpMovRegMem:
		return fmt.Sprintf("mov %v, %v", mem(), insn.Reg.Name(insn.Size))
	case OpMovMemReg:
		return fmt.Sprintf("mov %v, %v", insn.Reg.Name(insn.Size), mem())
	case OpXaddRegReg, OpXchgRegReg:
		return fmt.Sprintf("%v %v, %v", insn.Op, insn.RM.Name(insn.Size), insn.Reg.Name(insn.Size))
	case OpXaddMem, OpXchgMem:
		return fmt.Sprintf("%v%v %v, %v", lock, insn.Op, mem(), insn.Reg.Name(insn.Size))
	case OpEnter:
		return fmt.Sprintf("enter 0x%x, %v", insn.Imm, insn.Nesting)
	case OpPush, OpPop:
		return fmt.Sprintf("%v %v", insn.Op, insn.RM)
	}
	return insn.Op.String()
}
