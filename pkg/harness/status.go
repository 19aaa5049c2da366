// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"encoding/binary"
	"io"
)

const statusMagic = 0xbadc0ffe

// statusRecord is sent by a worker on the status pipe at every state transition.
// A non-zero Code reports a failure to reach State, Code is the exit status that follows.
// Setup failures before binding carry StateSpawned.
type statusRecord struct {
	Magic  uint32
	Worker uint32
	State  uint32
	Code   uint32
}

func writeRecord(w io.Writer, rec statusRecord) error {
	return binary.Write(w, binary.LittleEndian, &rec)
}

func readRecord(r io.Reader) (statusRecord, error) {
	var rec statusRecord
	err := binary.Read(r, binary.LittleEndian, &rec)
	return rec, err
}

// reporter is the worker side of the status protocol.
type reporter interface {
	report(state State)
	fail(state State, code int)
}

type statusWriter struct {
	w      io.Writer
	worker int
}

func (sw *statusWriter) report(state State) {
	sw.write(statusRecord{statusMagic, uint32(sw.worker), uint32(state), 0})
}

func (sw *statusWriter) fail(state State, code int) {
	sw.write(statusRecord{statusMagic, uint32(sw.worker), uint32(state), uint32(code)})
}

func (sw *statusWriter) write(rec statusRecord) {
	// A parent that stopped listening will kill us anyway.
	writeRecord(sw.w, rec)
}
