// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ifuzz

import (
	"fmt"
	"strings"

	"github.com/google/syz-memstress/pkg/ifuzz/x86"
	"golang.org/x/arch/x86/x86asm"
)

// Line is one decoded instruction of a program.
type Line struct {
	Offset int
	Inst   x86asm.Inst
	Text   []byte
}

func (l *Line) String() string {
	return fmt.Sprintf("+0x%04x %-40v % x", l.Offset, FormatInst(l.Inst), l.Text)
}

// FormatInst renders a decoded instruction in lower case Intel syntax.
func FormatInst(inst x86asm.Inst) string {
	return strings.ToLower(x86asm.IntelSyntax(inst, 0, nil))
}

// Disassemble decodes a program up to and including the first RET.
// text may be longer than the program (e.g. a whole code slice), the rest is ignored.
func Disassemble(text []byte) ([]Line, error) {
	var lines []Line
	for off := 0; off < len(text); {
		inst, err := x86asm.Decode(text[off:], 64)
		if err != nil {
			return lines, fmt.Errorf("failed to decode at +0x%x (% x): %w",
				off, text[off:min(off+x86.MaxInsnLen, len(text))], err)
		}
		lines = append(lines, Line{
			Offset: off,
			Inst:   inst,
			Text:   text[off : off+inst.Len],
		})
		off += inst.Len
		if inst.Op == x86asm.RET {
			return lines, nil
		}
	}
	return lines, fmt.Errorf("no ret in %v bytes", len(text))
}

// ProgramSize is the size of the program at the start of text.
func ProgramSize(text []byte) (int, error) {
	lines, err := Disassemble(text)
	if err != nil {
		return 0, err
	}
	last := lines[len(lines)-1]
	return last.Offset + len(last.Text), nil
}
