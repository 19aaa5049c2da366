// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"fmt"
	"strings"
)

// Flag is a flag passed on the command line of a child process.
type Flag struct {
	Name  string
	Value string
}

// Args formats flags as "-name=value" arguments.
func Args(flags ...Flag) []string {
	args := make([]string, len(flags))
	for i, f := range flags {
		args[i] = fmt.Sprintf("-%v=%v", f.Name, f.Value)
	}
	return args
}

// ParseFlags parses args and fails if any of the required flags was not given explicitly.
// Positional arguments are not allowed.
func ParseFlags(set *flag.FlagSet, args []string, required ...string) error {
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() != 0 {
		return fmt.Errorf("unexpected arguments %q", set.Args())
	}
	seen := make(map[string]bool)
	set.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	var missing []string
	for _, name := range required {
		if set.Lookup(name) == nil {
			panic(fmt.Sprintf("required flag %q is not defined", name))
		}
		if !seen[name] {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("missing flags %v", strings.Join(missing, " "))
	}
	return nil
}
