// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package x86

// Writer appends encoded instructions to a fixed-capacity buffer.
// An instruction is either written completely or not at all.
type Writer struct {
	buf []byte
	pos int
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Pos is the offset of the next instruction.
func (w *Writer) Pos() int {
	return w.pos
}

// Remaining is the number of bytes that can still be written.
func (w *Writer) Remaining() int {
	return len(w.buf) - w.pos
}

// Bytes returns the code written so far.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.pos]
}

// Emit encodes insn at the current position and returns its offset.
func (w *Writer) Emit(insn Insn) (int, error) {
	var tmp [MaxInsnLen]byte
	n, err := insn.encode(&tmp)
	if err != nil {
		return 0, err
	}
	if n > w.Remaining() {
		return 0, &EncodingError{Insn: insn, Err: ErrBufferOverflow}
	}
	off := w.pos
	w.pos += copy(w.buf[w.pos:], tmp[:n])
	return off, nil
}
