// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package toolchain probes the host for the compilers, binutils and
// emulators a build variant depends on.  All version information is surfaced
// as semantic versions so the per-architecture planners can gate variants on
// simple comparisons.
package toolchain

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"lkt.sh/exec"
)

// ZeroVersion is reported for tools which are not installed so that any
// minimum-version comparison fails without the caller needing to
// special-case absence.
func ZeroVersion() *semver.Version {
	return semver.New(0, 0, 0, "", "")
}

// HaveBinary reports whether the named binary is present in PATH.
func HaveBinary(bin string) bool {
	_, err := osexec.LookPath(bin)
	return err == nil
}

// ClangVersion determines the version of the clang binary in PATH by
// preprocessing the version macros, which works with any vendor fork
// regardless of how it mangles the --version banner.
func ClangVersion(ctx context.Context) (*semver.Version, error) {
	if !HaveBinary("clang") {
		return ZeroVersion(), nil
	}

	executable, err := exec.NewExecutable("clang", nil, "-E", "-P", "-x", "c", "-")
	if err != nil {
		return nil, err
	}

	out, err := exec.Output(ctx, executable,
		exec.WithStdin(strings.NewReader("__clang_major__ __clang_minor__ __clang_patchlevel__")),
	)
	if err != nil {
		return nil, fmt.Errorf("could not preprocess clang version macros: %w", err)
	}

	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 3 {
		return nil, fmt.Errorf("malformed clang version output: %q", out)
	}

	return semver.NewVersion(strings.Join(fields, "."))
}

// ClangSupportsTarget tests that clang supports a particular target triple
// by compiling an empty translation unit for it.
func ClangSupportsTarget(ctx context.Context, target string) bool {
	process, err := exec.NewProcess("clang", []string{
		fmt.Sprintf("--target=%s", target),
		"-c", "-x", "c", "-o", os.DevNull, os.DevNull,
	})
	if err != nil {
		return false
	}

	return process.StartAndWait(ctx) == nil
}

// BinutilsVersion determines the version of the provided GNU assembler
// binary, e.g. "aarch64-linux-gnu-as".  Tools which are not installed
// report the zero version.
func BinutilsVersion(ctx context.Context, gnuAs string) (*semver.Version, error) {
	if !HaveBinary(gnuAs) {
		return ZeroVersion(), nil
	}

	executable, err := exec.NewExecutable(gnuAs, versionFlag{Version: true})
	if err != nil {
		return nil, err
	}

	out, err := exec.Output(ctx, executable)
	if err != nil {
		return nil, fmt.Errorf("could not run %s --version: %w", gnuAs, err)
	}

	return parseBinutilsVersion(out)
}

// parseBinutilsVersion extracts a version from the first line of `as
// --version` output.  Distributions disagree on the layout:
//
//	"GNU assembler (GNU Binutils) 2.39.50.20221024" -> 2.39.50
//	"GNU assembler version 2.39-3.fc38"             -> 2.39.0
func parseBinutilsVersion(out string) (*semver.Version, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("empty binutils version output")
	}

	fields := strings.Fields(lines[0])
	last := fields[len(fields)-1]
	last, _, _ = strings.Cut(last, "-")

	parts := strings.Split(last, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	version, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, fmt.Errorf("malformed binutils version %q: %w", lines[0], err)
	}

	return version, nil
}

type versionFlag struct {
	Version bool `flag:"--version"`
}

// QemuVersion determines the version of qemu-system-<arch> in PATH.
// Emulators which are not installed report the zero version.
func QemuVersion(ctx context.Context, qemuArch string) (*semver.Version, error) {
	bin := fmt.Sprintf("qemu-system-%s", qemuArch)
	if !HaveBinary(bin) {
		return ZeroVersion(), nil
	}

	executable, err := exec.NewExecutable(bin, versionFlag{Version: true})
	if err != nil {
		return nil, err
	}

	out, err := exec.Output(ctx, executable)
	if err != nil {
		return nil, fmt.Errorf("could not run %s --version: %w", bin, err)
	}

	return parseQemuVersion(out)
}

func parseQemuVersion(out string) (*semver.Version, error) {
	ret := strings.Split(strings.TrimSpace(out), "\n")[0]

	if !strings.HasPrefix(ret, "QEMU emulator version ") {
		return nil, fmt.Errorf("malformed return value cannot parse QEMU version")
	}

	ret = strings.TrimPrefix(ret, "QEMU emulator version ")

	// Some QEMU builds include the OS distribution they were compiled for
	// after the version number (surrounded by brackets); everything before
	// the first bracket is the version.
	return semver.NewVersion(strings.TrimSpace(strings.Split(ret, " (")[0]))
}

// BinaryInfo returns the first line of the version banner and the
// installation location of the named binary.
func BinaryInfo(ctx context.Context, bin string) (string, string, error) {
	path, err := osexec.LookPath(bin)
	if err != nil {
		return "", "", fmt.Errorf("could not find %s: %w", bin, err)
	}

	executable, err := exec.NewExecutable(bin, versionFlag{Version: true})
	if err != nil {
		return "", "", err
	}

	out, err := exec.Output(ctx, executable)
	if err != nil {
		return "", "", fmt.Errorf("could not run %s --version: %w", bin, err)
	}

	return strings.Split(strings.TrimSpace(out), "\n")[0], filepath.Dir(path), nil
}

// AddToPath prepends <prefix>/bin to PATH so subsequent probes and builds
// pick up the requested toolchain installation.
func AddToPath(prefix string) error {
	if prefix == "" {
		return nil
	}

	if _, err := os.Stat(prefix); err != nil {
		return fmt.Errorf("supplied prefix %q could not be found: %w", prefix, err)
	}

	bin := filepath.Join(prefix, "bin")
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("supplied prefix %q does not have a bin folder: %w", prefix, err)
	}

	path := os.Getenv("PATH")
	if strings.Contains(path, bin) {
		return nil
	}

	return os.Setenv("PATH", bin+string(os.PathListSeparator)+path)
}
