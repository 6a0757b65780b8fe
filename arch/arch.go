// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package arch plans and drives the per-architecture test matrices.
// Each architecture decides which configurations are worth building for
// the combination of kernel tree and toolchain at hand, skips what is
// known to be broken and hands the rest to the runner.
package arch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"

	"lkt.sh/internal/set"
	"lkt.sh/report"
	"lkt.sh/runner"
	"lkt.sh/source"
	"lkt.sh/toolchain"
)

// Input carries everything an architecture needs to plan its runs.
type Input struct {
	Folders     runner.Folders
	LSM         *source.Manager
	LLVMVersion *semver.Version

	// MakeVars are host-wide make variables, such as ccache or
	// parallel compressor overrides, applied to every build.
	MakeVars map[string]string

	Targets      *set.StringSet
	OnlyTestBoot bool
	SaveObjects  bool
}

type planFunc func(ctx context.Context, input *Input) ([]*runner.Result, error)

var planners = map[string]planFunc{
	"arm":       runArm,
	"arm64":     runArm64,
	"hexagon":   runHexagon,
	"i386":      runI386,
	"loongarch": runLoongArch,
	"mips":      runMips,
	"powerpc":   runPowerPC,
	"riscv":     runRISCV,
	"s390":      runS390,
	"x86_64":    runX8664,
}

// Names returns the supported architectures in sorted order.
func Names() []string {
	names := make([]string, 0, len(planners))
	for name := range planners {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Run plans and executes the test matrix of a single architecture.
func Run(ctx context.Context, name string, input *Input) ([]*runner.Result, error) {
	plan, ok := planners[name]
	if !ok {
		return nil, fmt.Errorf("unsupported architecture: %s", name)
	}

	return plan(ctx, input)
}

// driver holds the state shared by every architecture: the variables
// applied to all of its builds, the planned runners and the results
// accumulated so far.
type driver struct {
	arch        string
	clangTarget string
	input       *Input
	makeVars    map[string]string
	runners     []*runner.Runner
	results     []*runner.Result
}

func newDriver(arch, clangTarget string, input *Input) *driver {
	makeVars := map[string]string{"ARCH": arch}
	for key, val := range input.MakeVars {
		makeVars[key] = val
	}

	return &driver{
		arch:        arch,
		clangTarget: clangTarget,
		input:       input,
		makeVars:    makeVars,
	}
}

// skipAll records a single skip result standing in for the whole
// architecture.
func (d *driver) skipAll(logReason, printReason string) []*runner.Result {
	result := &runner.Result{
		Name:   d.arch + " kernels",
		Build:  runner.StatusSkipped,
		Reason: logReason,
	}

	report.Header("Skipping " + result.Name)
	fmt.Printf("Reason: %s\n", printReason)

	return []*runner.Result{result}
}

// skipOne records a skip for a single configuration while the rest of
// the architecture still runs.
func (d *driver) skipOne(name, reason string) {
	d.results = append(d.results, &runner.Result{
		Name:   name,
		Build:  runner.StatusSkipped,
		Reason: reason,
	})

	fmt.Printf("Skipping %s due to %s\n", name, reason)
}

// execute gates the architecture on toolchain support and then runs
// every planned configuration.
func (d *driver) execute(ctx context.Context) ([]*runner.Result, error) {
	if !toolchain.ClangSupportsTarget(ctx, d.clangTarget) {
		return d.skipAll("missing clang target",
			fmt.Sprintf("Missing %s target in clang", d.clangTarget)), nil
	}

	if cc := d.makeVars["CROSS_COMPILE"]; cc != "" && d.makeVars["LLVM_IAS"] == "0" &&
		!toolchain.HaveBinary(cc+"as") {
		return d.skipAll("missing binutils", "Cannot find binutils"), nil
	}

	report.Header(fmt.Sprintf("Building %s kernels", d.arch))

	folders := d.input.Folders
	folders.Build = filepath.Join(folders.Build, d.arch)

	for _, r := range d.runners {
		r.Folders = folders
		if r.LSM == nil {
			r.LSM = d.input.LSM
		}
		for key, val := range d.makeVars {
			r.MakeVars[key] = val
		}

		result, err := r.Run(ctx)
		if err != nil {
			return nil, err
		}
		d.results = append(d.results, result)
	}

	if !d.input.SaveObjects {
		if err := os.RemoveAll(folders.Build); err != nil {
			return nil, err
		}
	}

	return d.results, nil
}

// distroConfig resolves the path of a bundled distribution
// configuration.
func (d *driver) distroConfig(distro, name string) string {
	return filepath.Join(d.input.Folders.Configs, distro, name+".config")
}

func version(major, minor, patch uint64) *semver.Version {
	return semver.New(major, minor, patch, "", "")
}
