// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"strings"

	"lkt.sh/runner"
	"lkt.sh/source"
	"lkt.sh/toolchain"
)

// powerpcHasBigEndianELFv2 reports whether the tree can link big
// endian ELFv2 kernels with ld.lld.
func powerpcHasBigEndianELFv2(lsm *source.Manager) bool {
	if !lsm.HasConfig("CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2") {
		return false
	}

	return !strings.Contains(lsm.ReadFile("arch/powerpc/Kconfig"),
		"depends on CC_HAS_ELFV2\n\tdepends on LD_IS_BFD")
}

func newPowerPCRunner() *runner.Runner {
	r := runner.New()
	r.BootArch = "ppc64le"
	r.ImageTarget = "zImage.epapr"
	r.QemuArch = "ppc64"

	return r
}

func runPowerPC(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("powerpc", "powerpc-linux-gnu", input)
	lsm := input.LSM

	// CROSS_COMPILE is always present so that the binutils gate can
	// skip the whole architecture when none are installed.
	for _, crossCompile := range []string{"powerpc64-linux-gnu-", "powerpc-linux-gnu-", "powerpc64le-linux-gnu-"} {
		d.makeVars["CROSS_COMPILE"] = crossCompile
		if toolchain.HaveBinary(crossCompile + "as") {
			break
		}
	}
	crossCompile := d.makeVars["CROSS_COMPILE"]

	ppc64leVars := map[string]string{}
	if !lsm.HasCommit("0355785313e21") {
		ppc64leVars["LD"] = crossCompile + "ld"
	}
	if !lsm.Version().LessThan(version(5, 18, 0)) && !input.LLVMVersion.LessThan(version(14, 0, 0)) {
		ppc64leVars["LLVM_IAS"] = "1"
	}

	if input.Targets.Contains("def") {
		if lsm.HasCommit("2255411d1d0f0") {
			d.results = append(d.results, &runner.Result{
				Name:   "powerpc ppc44x_defconfig",
				Build:  runner.StatusSkipped,
				Reason: "2255411d1d0f0 (https://github.com/ClangBuiltLinux/linux/issues/1679)",
			})
		} else {
			r := newPowerPCRunner()
			r.BootArch = "ppc32"
			r.QemuArch = "ppc"
			r.Bootable = !input.LLVMVersion.LessThan(version(12, 0, 1)) || !lsm.HasCommit("48cf12d88969b")
			if !r.Bootable {
				r.SkippedBoot = "skipped (https://github.com/ClangBuiltLinux/linux/issues/1345)"
			}
			r.Configs = []string{"ppc44x_defconfig"}
			r.ImageTarget = "uImage"
			if !input.OnlyTestBoot {
				r.MakeTargets = append(r.MakeTargets, r.ImageTarget)
			}
			r.OnlyTestBoot = input.OnlyTestBoot
			d.runners = append(d.runners, r)
		}

		if lsm.HasCommit("297565aa22cfa") {
			r := newPowerPCRunner()
			r.BootArch = "ppc32_mac"
			r.QemuArch = "ppc"
			r.Bootable = !input.LLVMVersion.LessThan(version(14, 0, 0))
			if !r.Bootable {
				r.SkippedBoot = "skipped due to LLVM < 14.0.0 (lack of 1e3c6fc7cb9d2)"
			}
			r.Configs = []string{
				"pmac32_defconfig",
				"CONFIG_SERIAL_PMACZILOG=y",
				"CONFIG_SERIAL_PMACZILOG_CONSOLE=y",
			}
			r.ImageTarget = "vmlinux"
			r.OnlyTestBoot = input.OnlyTestBoot
			d.runners = append(d.runners, r)
		} else {
			d.results = append(d.results, &runner.Result{
				Name:   "powerpc pmac32_defconfig",
				Build:  runner.StatusSkipped,
				Reason: "missing 297565aa22cfa (https://github.com/ClangBuiltLinux/linux/issues/563)",
			})
		}

		r := newPowerPCRunner()
		r.BootArch = "ppc64"
		r.Bootable = true
		r.Configs = []string{"pseries_defconfig"}
		workaroundCBL1292 := !lsm.HasCommit("51696f39cbee5") && !input.LLVMVersion.LessThan(version(12, 0, 0))
		workaroundCBL1445 := !lsm.Version().LessThan(version(5, 18, 0)) && input.LLVMVersion.LessThan(version(14, 0, 0))
		if workaroundCBL1292 || workaroundCBL1445 {
			r.Configs = append(r.Configs, "CONFIG_PPC_DISABLE_WERROR=y")
		}
		r.ImageTarget = "vmlinux"
		r.MakeVars["LD"] = crossCompile + "ld"
		r.OnlyTestBoot = input.OnlyTestBoot
		d.runners = append(d.runners, r)

		r = newPowerPCRunner()
		r.Bootable = true
		r.Configs = []string{"powernv_defconfig"}
		for key, val := range ppc64leVars {
			r.MakeVars[key] = val
		}
		if input.LLVMVersion.LessThan(version(12, 0, 0)) {
			r.MakeVars["LD"] = crossCompile + "ld"
		}
		r.OnlyTestBoot = input.OnlyTestBoot
		d.runners = append(d.runners, r)

		if !input.OnlyTestBoot {
			r = newPowerPCRunner()
			r.Configs = []string{"ppc64le_defconfig"}
			for key, val := range ppc64leVars {
				r.MakeVars[key] = val
			}
			d.runners = append(d.runners, r)
		}
	}

	if !input.OnlyTestBoot {
		if input.Targets.Contains("other") {
			if powerpcHasBigEndianELFv2(lsm) {
				r := newPowerPCRunner()
				r.Configs = []string{
					"allmodconfig",
					"CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2=y",
					"CONFIG_WERROR=n",
				}
				for key, val := range ppc64leVars {
					r.MakeVars[key] = val
				}
				d.runners = append(d.runners, r)
			}

			for _, target := range []string{"allnoconfig", "tinyconfig"} {
				r := newPowerPCRunner()
				r.Configs = []string{target}
				d.runners = append(d.runners, r)
			}
		}

		if input.Targets.Contains("distro") {
			distros := []struct {
				distro string
				config string
			}{
				{"debian", "powerpc64le"},
				{"fedora", "ppc64le"},
				{"opensuse", "ppc64le"},
			}
			for _, distro := range distros {
				if distro.distro == "opensuse" && lsm.HasCommit("231b232df8f67") &&
					!lsm.HasCommit("6fcb574125e67") &&
					!input.LLVMVersion.GreaterThan(version(12, 0, 0)) {
					d.results = append(d.results, &runner.Result{
						Name:   "powerpc opensuse config",
						Build:  runner.StatusSkipped,
						Reason: "https://github.com/ClangBuiltLinux/linux/issues/1160",
					})

					continue
				}

				r := newPowerPCRunner()
				r.Bootable = true
				r.DistroConfig = d.distroConfig(distro.distro, distro.config)
				for key, val := range ppc64leVars {
					r.MakeVars[key] = val
				}
				d.runners = append(d.runners, r)
			}
		}
	}

	return d.execute(ctx)
}
