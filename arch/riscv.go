// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"strings"

	"lkt.sh/runner"
)

func newRISCVRunner() *runner.Runner {
	r := runner.New()
	r.BootArch = "riscv"
	r.ImageTarget = "Image"
	r.QemuArch = "riscv64"

	return r
}

func runRISCV(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("riscv", "riscv64-linux-gnu", input)
	lsm := input.LSM

	crossCompile := "riscv64-linux-gnu-"

	if lsm.Version().LessThan(version(5, 7, 0)) {
		printText := "RISC-V needs the following fixes from Linux 5.7 to build properly:\n" +
			"\n" +
			"        * https://git.kernel.org/linus/52e7c52d2ded5908e6a4f8a7248e5fa6e0d6809a\n" +
			"        * https://git.kernel.org/linus/fdff9911f266951b14b20e25557278b5b3f0d90d\n" +
			"        * https://git.kernel.org/linus/abc71bf0a70311ab294f97a7f16e8de03718c05a\n" +
			"\n" +
			"Provide a kernel tree with Linux 5.7 or newer to build RISC-V kernels."

		return d.skipAll("missing 52e7c52d2ded, fdff9911f266, and/or abc71bf0a703", printText), nil
	}

	if !input.LLVMVersion.LessThan(version(13, 0, 0)) {
		d.makeVars["LLVM_IAS"] = "1"
		if !lsm.HasCommit("6f5b41a2f5a63") {
			d.makeVars["CROSS_COMPILE"] = crossCompile
		}
	} else {
		d.makeVars["CROSS_COMPILE"] = crossCompile
	}

	if input.LLVMVersion.LessThan(version(13, 0, 0)) || !lsm.HasCommit("ec3a5cb61146c") ||
		!lsm.Version().GreaterThan(version(5, 10, 999)) {
		d.makeVars["LD"] = crossCompile + "ld"
	}

	if input.Targets.Contains("def") {
		r := newRISCVRunner()
		r.Bootable = true
		r.Configs = []string{"defconfig"}
		if input.LLVMVersion.LessThan(version(13, 0, 0)) &&
			strings.Contains(lsm.ReadFile("arch/riscv/Kconfig"), "config EFI") {
			r.Configs = append(r.Configs, "CONFIG_EFI=n")
		}
		r.OnlyTestBoot = input.OnlyTestBoot
		d.runners = append(d.runners, r)
	}

	if !input.OnlyTestBoot && lsm.Version().GreaterThan(version(5, 8, 0)) &&
		lsm.HasCommit("ec3a5cb61146c") {
		if input.Targets.Contains("other") {
			r := newRISCVRunner()
			r.Configs = []string{"allmodconfig"}
			if lsm.HasConfig("CONFIG_WERROR") {
				r.Configs = append(r.Configs, "CONFIG_WERROR=n")
			}
			d.runners = append(d.runners, r)
		}

		if input.Targets.Contains("distro") {
			distros := []struct {
				distro string
				config string
			}{
				{"alpine", "riscv64"},
				{"opensuse", "riscv64"},
			}
			for _, distro := range distros {
				r := newRISCVRunner()
				r.Bootable = lsm.HasCommit("f2928e224d85e")
				if !r.Bootable {
					r.SkippedBoot = "skipped due to lack of f2928e224d85e"
				}
				r.DistroConfig = d.distroConfig(distro.distro, distro.config)
				d.runners = append(d.runners, r)
			}
		}
	}

	return d.execute(ctx)
}
