// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"lkt.sh/runner"
	"lkt.sh/toolchain"
)

// While the change that raised the minimum version of LLVM for s390 did
// not land in Linux until 5.14, backports to earlier versions may use
// the assembly constructs that caused the minimum version to be bumped
// in the first place.
var s390HardMinLLVM = semver.New(13, 0, 0, "", "")

func newS390Runner() *runner.Runner {
	r := runner.New()
	r.BootArch = "s390"
	r.ImageTarget = "bzImage"
	r.QemuArch = "s390x"

	return r
}

func runS390(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("s390", "s390x-linux-gnu", input)
	lsm := input.LSM

	crossCompile := "s390x-linux-gnu-"
	for _, variable := range []string{"LD", "OBJCOPY", "OBJDUMP"} {
		d.makeVars[variable] = crossCompile + strings.ToLower(variable)
	}

	if lsm.Version().LessThan(version(5, 6, 0)) {
		printText := "s390 kernels did not build properly until Linux 5.6\n" +
			"        https://lore.kernel.org/lkml/your-ad-here.call-01580230449-ext-6884@work.hours/"

		return d.skipAll(
			"missing fixes from 5.6 (https://lore.kernel.org/r/your-ad-here.call-01580230449-ext-6884@work.hours/)",
			printText), nil
	}

	binutilsVersion, err := toolchain.BinutilsVersion(ctx, crossCompile+"as")
	if err != nil {
		return nil, err
	}
	if !binutilsVersion.LessThan(version(2, 39, 50)) && !lsm.HasCommit("80ddf5ce1c929") {
		printText := "s390 kernels may fail to link with binutils 2.40+ and CONFIG_RELOCATABLE=n\n" +
			"        https://github.com/ClangBuiltLinux/linux/issues/1747"

		return d.skipAll(
			"linker error with CONFIG_RELOCATABLE=n (https://github.com/ClangBuiltLinux/linux/issues/1747)",
			printText), nil
	}

	minLLVM, err := lsm.MinToolVersion(ctx, "llvm", "s390")
	if err != nil {
		return nil, err
	}
	reason := "because of scripts/min-tool-version.sh for supplied tree"
	if minLLVM.LessThan(s390HardMinLLVM) {
		minLLVM = s390HardMinLLVM
		reason = "to avoid build failures from backports of commits that came after minimum version change in 5.14"
	}

	if input.LLVMVersion.LessThan(minLLVM) {
		return d.skipAll(fmt.Sprintf("LLVM < %s", minLLVM),
			fmt.Sprintf("s390 requires LLVM %s or newer %s", minLLVM, reason)), nil
	}

	if !lsm.Version().LessThan(version(5, 19, 0)) {
		d.makeVars["LLVM_IAS"] = "1"
	} else {
		d.makeVars["CROSS_COMPILE"] = crossCompile
	}

	if input.Targets.Contains("def") {
		r := newS390Runner()
		r.Bootable = true
		r.Configs = []string{"defconfig"}
		r.OnlyTestBoot = input.OnlyTestBoot
		d.runners = append(d.runners, r)
	}

	if !input.OnlyTestBoot {
		if input.Targets.Contains("other") {
			for _, target := range []string{"allmodconfig", "allnoconfig", "tinyconfig"} {
				r := newS390Runner()
				r.Configs = []string{target}
				if target == "allmodconfig" {
					if lsm.HasCommit("925d046e7e52") && !lsm.HasCommit("876e480da2f74") {
						r.Configs = append(r.Configs, "CONFIG_INFINIBAND_ADDR_TRANS=n")
					}
					if lsm.HasConfig("CONFIG_WERROR") {
						r.Configs = append(r.Configs, "CONFIG_WERROR=n")
					}
				}
				d.runners = append(d.runners, r)
			}
		}

		if input.Targets.Contains("distro") {
			for _, distro := range []string{"debian", "fedora", "opensuse"} {
				r := newS390Runner()
				r.Bootable = true
				r.DistroConfig = d.distroConfig(distro, "s390x")
				if distro == "fedora" && !lsm.HasCommit("efe5e0fea4b24") {
					r.Configs = append(r.Configs, "CONFIG_MARCH_Z13=n", "CONFIG_MARCH_Z196=y")
				}
				d.runners = append(d.runners, r)
			}
		}
	}

	// QEMU needs to contain at least
	// https://gitlab.com/qemu-project/qemu/-/commit/c23908305b3ce7a547b0981eae549f36f756b950
	// to emulate the facilities a clang built kernel requires.
	minQemu := version(6, 0, 0)
	qemuVersion, err := toolchain.QemuVersion(ctx, "s390x")
	if err != nil {
		return nil, err
	}
	if qemuVersion.LessThan(minQemu) {
		for _, r := range d.runners {
			if r.Bootable {
				r.Bootable = false
				r.SkippedBoot = fmt.Sprintf("skipped due to qemu older than %s (found %s)", minQemu, qemuVersion)
			}
		}
	}

	return d.execute(ctx)
}
