// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package make

import (
	"context"

	"lkt.sh/exec"
)

const DefaultBinaryName = "make"

type Make struct {
	opts    *MakeOptions
	process *exec.Process
	seq     *exec.SequentialProcesses
}

// New prepares a GNU Make command call from the provided options.
func New(mopts ...MakeOption) (*Make, error) {
	m := &Make{}

	var err error
	m.opts, err = NewMakeOptions(mopts...)
	if err != nil {
		return nil, err
	}

	if len(m.opts.bin) == 0 {
		m.opts.bin = DefaultBinaryName
	}

	executable, err := exec.NewExecutable(m.opts.bin, *m.opts, m.opts.Vars()...)
	if err != nil {
		return nil, err
	}

	m.process, err = exec.NewProcessFromExecutable(executable, m.opts.eopts...)
	if err != nil {
		return nil, err
	}

	m.seq, err = exec.NewSequential(m.process)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Cmdline returns the full make command line which will be executed.
func (m *Make) Cmdline() string {
	return m.process.Cmdline()
}

// Execute starts and waits on the prepared make invocation.
func (m *Make) Execute(ctx context.Context) error {
	return m.seq.StartAndWait(ctx)
}

// Output starts the prepared make invocation and returns everything it
// wrote to stdout once it has exited.
func (m *Make) Output(ctx context.Context) (string, error) {
	executable, err := exec.NewExecutable(m.opts.bin, *m.opts, m.opts.Vars()...)
	if err != nil {
		return "", err
	}

	return exec.Output(ctx, executable, m.opts.eopts...)
}
