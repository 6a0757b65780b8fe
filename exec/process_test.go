// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package exec_test

import (
	"bytes"
	"context"
	"testing"

	"lkt.sh/exec"
)

func TestProcessStreamCallbacks(t *testing.T) {
	var stdout, stdoutCopy, stderrCopy bytes.Buffer
	var exitCodes []int

	process, err := exec.NewProcess("sh", []string{"-c", "echo out; echo err >&2"},
		exec.WithStdout(&stdout),
		exec.WithStdoutCallback(&stdoutCopy),
		exec.WithStderrCallback(&stderrCopy),
		exec.WithOnExitCallback(func(code int) {
			exitCodes = append(exitCodes, code)
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := process.StartAndWait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := stdout.String(); got != "out\n" {
		t.Errorf("stdout = %q, want %q", got, "out\n")
	}
	if got := stdoutCopy.String(); got != "out\n" {
		t.Errorf("stdout callback = %q, want %q", got, "out\n")
	}
	if got := stderrCopy.String(); got != "err\n" {
		t.Errorf("stderr callback = %q, want %q", got, "err\n")
	}
	if len(exitCodes) != 1 || exitCodes[0] != 0 {
		t.Errorf("exit callback codes = %v, want [0]", exitCodes)
	}
}

func TestNewSequential(t *testing.T) {
	var out bytes.Buffer

	first, err := exec.NewProcess("sh", []string{"-c", "echo first"},
		exec.WithStdout(&out),
	)
	if err != nil {
		t.Fatal(err)
	}

	second, err := exec.NewProcess("sh", []string{"-c", "echo second"},
		exec.WithStdout(&out),
	)
	if err != nil {
		t.Fatal(err)
	}

	seq, err := exec.NewSequential(first, second)
	if err != nil {
		t.Fatal(err)
	}

	if err := seq.StartAndWait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := out.String(); got != "first\nsecond\n" {
		t.Errorf("sequential output = %q, want %q", got, "first\nsecond\n")
	}
}

func TestNewSequentialStopsOnFailure(t *testing.T) {
	var out bytes.Buffer

	failing, err := exec.NewProcess("sh", []string{"-c", "exit 1"})
	if err != nil {
		t.Fatal(err)
	}

	after, err := exec.NewProcess("sh", []string{"-c", "echo after"},
		exec.WithStdout(&out),
	)
	if err != nil {
		t.Fatal(err)
	}

	seq, err := exec.NewSequential(failing, after)
	if err != nil {
		t.Fatal(err)
	}

	if err := seq.StartAndWait(context.Background()); err == nil {
		t.Fatal("expected error from failing process")
	}

	if out.Len() != 0 {
		t.Errorf("later process ran after failure, output: %q", out.String())
	}
}
