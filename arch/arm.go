// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"regexp"

	"lkt.sh/runner"
	"lkt.sh/source"
	"lkt.sh/toolchain"
)

// armDisableBE reports whether big endian support is broken with
// ld.lld, meaning CONFIG_CPU_BIG_ENDIAN has to be turned off in
// allmodconfig builds.
func armDisableBE(lsm *source.Manager) bool {
	text := lsm.ReadFile("arch/arm/mm/Kconfig")
	re := regexp.MustCompile(`(bool "Build big-endian kernel"|depends on ARCH_SUPPORTS_BIG_ENDIAN)\n\tdepends on !LD_IS_LLD`)

	return !re.MatchString(text)
}

func newArmRunner() *runner.Runner {
	r := runner.New()
	r.BootArch = "arm32_v7"
	r.ImageTarget = "zImage"
	r.QemuArch = "arm"

	return r
}

func runArm(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("arm", "arm-linux-gnueabi", input)
	lsm := input.LSM

	var crossCompile string
	for _, crossCompile = range []string{"arm-linux-gnu-", "arm-linux-gnueabihf-", "arm-linux-gnueabi-"} {
		if toolchain.HaveBinary(crossCompile + "as") {
			break
		}
	}

	if !input.LLVMVersion.LessThan(version(13, 0, 0)) && !lsm.Version().LessThan(version(5, 13, 0)) {
		d.makeVars["LLVM_IAS"] = "1"
		if !lsm.HasCommit("6f5b41a2f5a63") {
			d.makeVars["CROSS_COMPILE"] = crossCompile
		}
	} else {
		d.makeVars["CROSS_COMPILE"] = crossCompile
	}

	if input.Targets.Contains("def") {
		defconfigs := []struct {
			target   string
			bootArch string
		}{
			{"multi_v5_defconfig", "arm32_v5"},
			{"aspeed_g5_defconfig", "arm32_v6"},
			{"multi_v7_defconfig", "arm32_v7"},
		}
		for _, defconfig := range defconfigs {
			r := newArmRunner()
			r.BootArch = defconfig.bootArch
			r.Configs = []string{defconfig.target}
			if input.OnlyTestBoot {
				// https://git.kernel.org/linus/724ba6751532055db75992fc6ae21c3e322e94a7
				dtbPrefix := ""
				if lsm.FileExists("arch/arm/boot/dts/aspeed") {
					dtbPrefix = "aspeed/"
				}
				switch defconfig.target {
				case "multi_v5_defconfig":
					r.MakeTargets = append(r.MakeTargets, dtbPrefix+"aspeed-bmc-opp-palmetto.dtb")
				case "aspeed_g5_defconfig":
					r.MakeTargets = append(r.MakeTargets, dtbPrefix+"aspeed-bmc-opp-romulus.dtb")
				}
			}
			r.Bootable = true
			r.OnlyTestBoot = input.OnlyTestBoot
			d.runners = append(d.runners, r)
		}

		// https://github.com/ClangBuiltLinux/linux/issues/325
		if lsm.HasCommit("9d417cbe36eee") || !lsm.HasConfig("CONFIG_HAVE_FUTEX_CMPXCHG") {
			r := newArmRunner()
			r.Configs = []string{"multi_v7_defconfig", "CONFIG_THUMB2_KERNEL=y"}
			r.Bootable = true
			r.OnlyTestBoot = input.OnlyTestBoot
			d.runners = append(d.runners, r)
		}
	}

	if !input.OnlyTestBoot {
		if input.Targets.Contains("other") {
			for _, target := range []string{"allmodconfig", "allnoconfig", "tinyconfig"} {
				r := newArmRunner()
				r.Configs = []string{target}
				if target == "allmodconfig" {
					if armDisableBE(lsm) {
						r.Configs = append(r.Configs, "CONFIG_CPU_BIG_ENDIAN=n")
					}
					if lsm.HasConfig("CONFIG_WERROR") {
						r.Configs = append(r.Configs, "CONFIG_WERROR=n")
					}
				}
				d.runners = append(d.runners, r)
			}
		}

		if input.Targets.Contains("distro") {
			distros := []struct {
				distro string
				config string
			}{
				{"alpine", "armv7"},
				{"archlinux", "armv7"},
				{"debian", "armmp"},
				{"fedora", "armv7hl"},
				{"opensuse", "armv7hl"},
			}
			for _, distro := range distros {
				r := newArmRunner()
				r.Bootable = distro.distro != "fedora"
				r.DistroConfig = d.distroConfig(distro.distro, distro.config)
				d.runners = append(d.runners, r)
			}
		}
	}

	return d.execute(ctx)
}
