// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"fmt"
	"io"

	"github.com/google/syz-memstress/pkg/hash"
	"github.com/google/syz-memstress/pkg/ifuzz"
	"github.com/google/syz-memstress/pkg/ifuzz/x86"
	"github.com/google/uuid"
)

// Dump prints programs the workers of a run with cfg would execute, without running anything.
// Region addresses are only known inside workers, so programs load a zero data base.
func Dump(cfg *Config, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	n := ClampWorkers(cfg.Workers)
	fmt.Fprintf(out, "# dump %v: seed=%v insns=%v workers=%v\n", uuid.New(), cfg.Seed, cfg.Insns, n)
	for id := 0; id < n; id++ {
		fmt.Fprintf(out, "\n# worker %v\n", id)
		gen := &ifuzz.Config{
			Seed:     cfg.Seed,
			Worker:   id,
			Len:      cfg.Insns,
			DataSize: uint64(cfg.Layout.Data),
		}
		p, err := ifuzz.Generate(gen, x86.NewWriter(make([]byte, cfg.Layout.Code)))
		if err != nil {
			fmt.Fprintf(out, "# %v: %v\n", ErrGenerationRejected, err)
			continue
		}
		lines, err := ifuzz.Disassemble(p.Code)
		if err != nil {
			return fmt.Errorf("worker %v: %w", id, err)
		}
		for i := range lines {
			fmt.Fprintf(out, "%v\n", &lines[i])
		}
		fmt.Fprintf(out, "# kinds:")
		for kind, n := range p.Kinds {
			if n != 0 {
				fmt.Fprintf(out, " %v=%v", ifuzz.Kind(kind), n)
			}
		}
		fmt.Fprintf(out, "\n")
		fmt.Fprintf(out, "# program %v: %v instructions, %v bytes\n", hash.Hash(p.Code).Short(), p.Insns, len(p.Code))
	}
	return nil
}
