// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"runtime"

	"lkt.sh/runner"
)

func newArm64Runner() *runner.Runner {
	r := runner.New()
	r.BootArch = "arm64"
	r.ImageTarget = "Image.gz"
	r.QemuArch = "aarch64"

	return r
}

func runArm64(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("arm64", "aarch64-linux-gnu", input)
	lsm := input.LSM

	crossCompile := "aarch64-linux-gnu-"
	if runtime.GOARCH == "arm64" {
		crossCompile = ""
	}

	if !lsm.Version().LessThan(version(5, 10, 0)) {
		d.makeVars["LLVM_IAS"] = "1"
		if !lsm.HasCommit("6f5b41a2f5a63") && crossCompile != "" {
			d.makeVars["CROSS_COMPILE"] = crossCompile
		}
	} else if crossCompile != "" {
		d.makeVars["CROSS_COMPILE"] = crossCompile
	}

	if input.Targets.Contains("def") {
		var runners []*runner.Runner

		if lsm.FileExists("arch/arm64/configs/virt.config") {
			r := newArm64Runner()
			r.Configs = []string{"virtconfig"}
			runners = append(runners, r)
		}

		r := newArm64Runner()
		r.Configs = []string{"defconfig"}
		runners = append(runners, r)

		if !input.LLVMVersion.LessThan(version(13, 0, 0)) {
			r = newArm64Runner()
			r.BootArch = "arm64be"
			r.Configs = []string{"defconfig", "CONFIG_CPU_BIG_ENDIAN=y"}
			runners = append(runners, r)
		}

		if lsm.HasConfig("CONFIG_LTO_CLANG_THIN") {
			r = newArm64Runner()
			r.Configs = []string{"defconfig", "CONFIG_LTO_CLANG_THIN=y"}
			runners = append(runners, r)
		}

		switch {
		case lsm.HasConfig("CONFIG_CFI_CLANG"):
			if lsm.HasCommit("89245600941e4") {
				r = newArm64Runner()
				r.Configs = []string{
					"defconfig",
					"CONFIG_CFI_CLANG=y",
					"CONFIG_SHADOW_CALL_STACK=y",
				}
				runners = append(runners, r)
			}

			r = newArm64Runner()
			r.Configs = []string{
				"defconfig",
				"CONFIG_CFI_CLANG=y",
				"CONFIG_LTO_CLANG_THIN=y",
				"CONFIG_SHADOW_CALL_STACK=y",
			}
			runners = append(runners, r)
		case lsm.HasConfig("CONFIG_SHADOW_CALL_STACK"):
			r = newArm64Runner()
			r.Configs = []string{"defconfig", "CONFIG_SHADOW_CALL_STACK=y"}
			runners = append(runners, r)
		}

		for _, r := range runners {
			r.Bootable = true
			r.OnlyTestBoot = input.OnlyTestBoot
		}
		d.runners = append(d.runners, runners...)
	}

	if !input.OnlyTestBoot {
		if input.Targets.Contains("other") {
			r := newArm64Runner()
			r.Configs = []string{"allmodconfig"}
			if !lsm.HasCommit("d8e85e144bbe1") {
				r.Configs = append(r.Configs, "CONFIG_CPU_BIG_ENDIAN=n")
			}
			if lsm.HasConfig("CONFIG_WERROR") {
				r.Configs = append(r.Configs, "CONFIG_WERROR=n")
			}
			d.runners = append(d.runners, r)

			if lsm.HasConfig("CONFIG_LTO_CLANG_THIN") {
				r = newArm64Runner()
				r.Configs = []string{
					"allmodconfig",
					"CONFIG_GCOV_KERNEL=n",
					"CONFIG_KASAN=n",
					"CONFIG_LTO_CLANG_THIN=y",
				}
				if lsm.HasConfig("CONFIG_WERROR") {
					r.Configs = append(r.Configs, "CONFIG_WERROR=n")
				}
				d.runners = append(d.runners, r)
			}

			for _, target := range []string{"allnoconfig", "tinyconfig"} {
				r = newArm64Runner()
				r.Configs = []string{target}
				d.runners = append(d.runners, r)
			}
		}

		if input.Targets.Contains("distro") {
			distros := []struct {
				distro string
				config string
			}{
				{"alpine", "aarch64"},
				{"archlinux", "aarch64"},
				{"debian", "arm64"},
				{"fedora", "aarch64"},
				{"opensuse", "arm64"},
			}
			for _, distro := range distros {
				r := newArm64Runner()
				r.Bootable = true
				r.DistroConfig = d.distroConfig(distro.distro, distro.config)
				if distro.distro == "fedora" && lsm.Version().LessThan(version(5, 7, 0)) {
					for _, sym := range []string{"STM", "TEST_MEMCAT_P"} {
						if runner.IsSet(r.DistroConfig, sym) {
							r.Configs = append(r.Configs, "CONFIG_"+sym+"=n")
						}
					}
				}
				d.runners = append(d.runners, r)
			}
		}
	}

	return d.execute(ctx)
}
