// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"lkt.sh/log"
)

type Process struct {
	executable *Executable
	opts       *ExecOptions
	cmd        *exec.Cmd
}

// NewProcess prepares a process to be executed from a given binary name and
// optional execution options.
func NewProcess(bin string, args []string, eopts ...ExecOption) (*Process, error) {
	executable, err := NewExecutable(bin, nil, args...)
	if err != nil {
		return nil, err
	}

	return NewProcessFromExecutable(executable, eopts...)
}

// NewProcessFromExecutable prepares a process to be executed from a given
// *Executable object and optional execution options.
func NewProcessFromExecutable(executable *Executable, eopts ...ExecOption) (*Process, error) {
	if executable == nil {
		return nil, fmt.Errorf("cannot prepare process without executable")
	}

	opts, err := NewExecOptions(eopts...)
	if err != nil {
		return nil, err
	}

	return &Process{
		executable: executable,
		opts:       opts,
	}, nil
}

// Cmdline returns the full command line to be executed.  Arguments containing
// whitespace are quoted such that the string can be copied into a shell.
func (p *Process) Cmdline() string {
	words := make([]string, 0, len(p.executable.args)+1)

	for _, word := range append([]string{p.executable.bin}, p.executable.args...) {
		if strings.ContainsAny(word, " \t\n") {
			if key, value, ok := strings.Cut(word, "="); ok && !strings.Contains(key, " ") {
				word = fmt.Sprintf("%s=%q", key, value)
			} else {
				word = fmt.Sprintf("%q", word)
			}
		}

		words = append(words, word)
	}

	return strings.Join(words, " ")
}

// Start the process.
func (p *Process) Start(ctx context.Context) error {
	p.cmd = exec.CommandContext(ctx, p.executable.bin, p.executable.Args()...)

	// Set the stdout
	if p.opts.stdout != nil && len(p.opts.stdoutcbs) == 0 {
		p.cmd.Stdout = p.opts.stdout
	} else if p.opts.stdout != nil {
		p.cmd.Stdout = io.MultiWriter(
			append([]io.Writer{p.opts.stdout}, p.opts.stdoutcbs...)...,
		)
	} else if len(p.opts.stdoutcbs) > 0 {
		p.cmd.Stdout = io.MultiWriter(p.opts.stdoutcbs...)
	}

	// Set the stderr.  When no stderr writer has been provided, combine it
	// with stdout so log files interleave the two streams the way a terminal
	// would.
	if p.opts.stderr != nil && len(p.opts.stderrcbs) == 0 {
		p.cmd.Stderr = p.opts.stderr
	} else if p.opts.stderr != nil {
		p.cmd.Stderr = io.MultiWriter(
			append([]io.Writer{p.opts.stderr}, p.opts.stderrcbs...)...,
		)
	} else if len(p.opts.stderrcbs) > 0 {
		p.cmd.Stderr = io.MultiWriter(p.opts.stderrcbs...)
	} else {
		p.cmd.Stderr = p.cmd.Stdout
	}

	if p.opts.stdin != nil {
		p.cmd.Stdin = p.opts.stdin
	}

	p.cmd.Dir = p.opts.dir

	// Add any set environmental variables including the host's
	p.cmd.Env = append(os.Environ(), p.opts.env...)

	log.G(ctx).Debug(p.Cmdline())

	return p.cmd.Start()
}

// Wait for the process to complete.
func (p *Process) Wait() error {
	if p.cmd == nil {
		return fmt.Errorf("process has not yet started cannot wait")
	}

	err := p.cmd.Wait()

	for _, cb := range p.opts.callbacks {
		cb(p.cmd.ProcessState.ExitCode())
	}

	return err
}

// StartAndWait starts the process and waits for it to exit.
func (p *Process) StartAndWait(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	return p.Wait()
}

// Output starts the provided executable and waits for it to exit, returning
// everything it wrote to stdout.  Stderr is discarded unless an option
// redirects it.
func Output(ctx context.Context, executable *Executable, eopts ...ExecOption) (string, error) {
	var buf bytes.Buffer

	process, err := NewProcessFromExecutable(executable,
		append([]ExecOption{WithStderr(io.Discard)}, append(eopts, WithStdout(&buf))...)...,
	)
	if err != nil {
		return "", err
	}

	if err := process.StartAndWait(ctx); err != nil {
		return buf.String(), err
	}

	return buf.String(), nil
}
