// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package make

import (
	"fmt"
	"sort"

	"lkt.sh/exec"
)

// MakeOptions represents the command-line arguments which can be passed to
// the invocation of GNU Make.
type MakeOptions struct {
	directory string `flag:"-C"`
	jobs      *int   `flag:"-j"`
	keepGoing bool   `flag:"-k"`
	justPrint bool   `flag:"-n"`
	silent    bool   `flag:"-s"`

	bin     string
	targets []string
	vars    map[string]string
	eopts   []exec.ExecOption
}

type MakeOption func(mo *MakeOptions) error

func NewMakeOptions(mopts ...MakeOption) (*MakeOptions, error) {
	mo := &MakeOptions{}

	for _, o := range mopts {
		if err := o(mo); err != nil {
			return nil, fmt.Errorf("could not apply option: %w", err)
		}
	}

	return mo, nil
}

// Vars returns the serialized slice of make variables which are passed as
// arguments to make along with any requested targets.  Variables are sorted
// by name so the rendered command line is deterministic and readable in the
// logs.
func (mo *MakeOptions) Vars() []string {
	keys := make([]string, 0, len(mo.vars))
	for k := range mo.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]string, 0, len(keys)+len(mo.targets))
	for _, k := range keys {
		vars = append(vars, k+"="+mo.vars[k])
	}

	return append(vars, mo.targets...)
}

// WithDirectory changes to the directory before doing anything.  Equivalent
// to calling the flags -C|--directory.
func WithDirectory(dir string) MakeOption {
	return func(mo *MakeOptions) error {
		mo.directory = dir
		return nil
	}
}

// WithJobs allows N jobs at once.  Equivalent to calling the flags -j|--jobs
// with a value.
func WithJobs(jobs int) MakeOption {
	return func(mo *MakeOptions) error {
		mo.jobs = &jobs
		return nil
	}
}

// WithKeepGoing keeps going when some targets can't be made.  Equivalent to
// calling the flags -k|--keep-going.
func WithKeepGoing(keepGoing bool) MakeOption {
	return func(mo *MakeOptions) error {
		mo.keepGoing = keepGoing
		return nil
	}
}

// WithJustPrint doesn't actually run any recipe; just prints them.
// Equivalent to calling the flags -n|--just-print|--dry-run|--recon.
func WithJustPrint(justPrint bool) MakeOption {
	return func(mo *MakeOptions) error {
		mo.justPrint = justPrint
		return nil
	}
}

// WithSilent doesn't echo recipes.  Equivalent to calling the flags
// -s|--silent|--quiet.
func WithSilent(silent bool) MakeOption {
	return func(mo *MakeOptions) error {
		mo.silent = silent
		return nil
	}
}

// WithVar sets a variable and its value before invoking make.
func WithVar(key, val string) MakeOption {
	return func(mo *MakeOptions) error {
		if mo.vars == nil {
			mo.vars = make(map[string]string)
		}

		mo.vars[key] = val

		return nil
	}
}

// WithVars sets a map of additional variables before invoking make.
func WithVars(vars map[string]string) MakeOption {
	return func(mo *MakeOptions) error {
		if mo.vars == nil {
			mo.vars = make(map[string]string)
		}

		for key, val := range vars {
			mo.vars[key] = val
		}

		return nil
	}
}

// WithTarget adds the targets to make (omission will invoke all targets).
func WithTarget(target ...string) MakeOption {
	return func(mo *MakeOptions) error {
		mo.targets = append(mo.targets, target...)
		return nil
	}
}

// WithBinPath sets an alternative path to the GNU Make binary executable.
func WithBinPath(path string) MakeOption {
	return func(mo *MakeOptions) error {
		mo.bin = path
		return nil
	}
}

// WithExecOptions offers configuration options to the underlying process
// executor.
func WithExecOptions(eopts ...exec.ExecOption) MakeOption {
	return func(mo *MakeOptions) error {
		mo.eopts = append(mo.eopts, eopts...)
		return nil
	}
}
