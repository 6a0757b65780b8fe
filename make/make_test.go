// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package make_test

import (
	"strings"
	"testing"

	"lkt.sh/make"
)

func TestCmdlineDeterministic(t *testing.T) {
	vars := map[string]string{
		"LLVM":        "1",
		"ARCH":        "arm64",
		"HOSTLDFLAGS": "-fuse-ld=lld",
		"CC":          "ccache clang",
	}

	m, err := make.New(
		make.WithDirectory("/linux"),
		make.WithJobs(4),
		make.WithSilent(true),
		make.WithKeepGoing(true),
		make.WithVars(vars),
		make.WithTarget("olddefconfig", "all"),
	)
	if err != nil {
		t.Fatal("New:", err)
	}

	want := `make -C /linux -j 4 -k -s ARCH=arm64 CC="ccache clang" HOSTLDFLAGS=-fuse-ld=lld LLVM=1 olddefconfig all`
	if got := m.Cmdline(); got != want {
		t.Errorf("Cmdline() = %q, want %q", got, want)
	}
}

func TestCmdlineVarsSorted(t *testing.T) {
	m, err := make.New(
		make.WithVar("O", "build"),
		make.WithVar("LLVM", "1"),
		make.WithVar("ARCH", "x86_64"),
	)
	if err != nil {
		t.Fatal("New:", err)
	}

	cmdline := m.Cmdline()
	last := -1
	for _, v := range []string{"ARCH=x86_64", "LLVM=1", "O=build"} {
		idx := strings.Index(cmdline, v)
		if idx < 0 {
			t.Fatalf("Cmdline() = %q is missing %q", cmdline, v)
		}
		if idx < last {
			t.Errorf("Cmdline() = %q does not sort variables by name", cmdline)
		}
		last = idx
	}
}

func TestCmdlineJustPrint(t *testing.T) {
	m, err := make.New(
		make.WithDirectory("/linux"),
		make.WithJustPrint(true),
		make.WithTarget("defconfig"),
	)
	if err != nil {
		t.Fatal("New:", err)
	}

	want := "make -C /linux -n defconfig"
	if got := m.Cmdline(); got != want {
		t.Errorf("Cmdline() = %q, want %q", got, want)
	}
}

func TestWithBinPath(t *testing.T) {
	m, err := make.New(
		make.WithBinPath("/opt/make/bin/make"),
		make.WithTarget("defconfig"),
	)
	if err != nil {
		t.Fatal("New:", err)
	}

	if !strings.HasPrefix(m.Cmdline(), "/opt/make/bin/make ") {
		t.Errorf("Cmdline() = %q, want the custom binary path first", m.Cmdline())
	}
}
