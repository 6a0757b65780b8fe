// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"lkt.sh/runner"
)

// https://github.com/llvm/llvm-project/commit/cff5bef948c91e4919de8a5fb9765e0edc13f3de
var x8664MinLLVMForCFI = semver.New(16, 0, 0, "", "")

func newX8664Runner() *runner.Runner {
	r := runner.New()
	r.BootArch = "x86_64"
	r.ImageTarget = "bzImage"
	r.QemuArch = "x86_64"

	return r
}

func runX8664(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("x86_64", "x86_64-linux-gnu", input)
	lsm := input.LSM

	crossCompile := ""
	if runtime.GOARCH != "amd64" {
		if !lsm.HasCommit("d5cbd80e302df") {
			return d.skipAll("missing d5cbd80e302d on a non-x86_64 host",
				"Cannot cross compile without https://git.kernel.org/linus/d5cbd80e302dfea59726c44c56ab7957f822409f"), nil
		}

		crossCompile = "x86_64-linux-gnu-"
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

		r := newX8664Runner()
		r.Configs = []string{"defconfig"}
		runners = append(runners, r)

		if lsm.HasConfig("CONFIG_LTO_CLANG_THIN") {
			r = newX8664Runner()
			r.Configs = []string{"defconfig", "CONFIG_LTO_CLANG_THIN=y"}
			runners = append(runners, r)
		}

		if !input.LLVMVersion.LessThan(x8664MinLLVMForCFI) && lsm.HasCommit("89245600941e4") {
			r = newX8664Runner()
			r.Configs = []string{"defconfig", "CONFIG_CFI_CLANG=y"}
			runners = append(runners, r)

			r = newX8664Runner()
			r.Configs = []string{"defconfig", "CONFIG_CFI_CLANG=y", "CONFIG_LTO_CLANG_THIN=y"}
			runners = append(runners, r)
		} else {
			d.results = append(d.results, &runner.Result{
				Name:  "x86_64 CFI configs",
				Build: runner.StatusSkipped,
				Reason: fmt.Sprintf("either LLVM < %s ('%s') or lack of support in Linux",
					x8664MinLLVMForCFI, input.LLVMVersion),
			})
		}

		for _, r := range runners {
			r.Bootable = true
			r.OnlyTestBoot = input.OnlyTestBoot
		}
		d.runners = append(d.runners, runners...)
	}

	if !input.OnlyTestBoot {
		if input.Targets.Contains("other") {
			r := newX8664Runner()
			r.Configs = []string{"allmodconfig"}
			if lsm.HasConfig("CONFIG_WERROR") {
				r.Configs = append(r.Configs, "CONFIG_WERROR=n")
			}
			// https://github.com/ClangBuiltLinux/linux/issues/515
			if lsm.Version().LessThan(version(5, 7, 0)) {
				r.Configs = append(r.Configs, "CONFIG_STM=n", "CONFIG_TEST_MEMCAT_P=n")
			}
			d.runners = append(d.runners, r)

			if lsm.HasConfig("CONFIG_LTO_CLANG_THIN") {
				r = newX8664Runner()
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
		}

		if input.Targets.Contains("distro") {
			distros := []struct {
				distro string
				config string
			}{
				{"alpine", "x86_64"},
				{"archlinux", "x86_64"},
				{"debian", "amd64"},
				{"fedora", "x86_64"},
				{"opensuse", "x86_64"},
			}
			for _, distro := range distros {
				r := newX8664Runner()
				r.Bootable = true
				r.DistroConfig = d.distroConfig(distro.distro, distro.config)
				hasX32 := runner.IsSet(r.DistroConfig, "X86_X32_ABI")
				needsGNUObjcopy := !lsm.HasCommit("aaeed6ecc1253")
				if hasX32 && needsGNUObjcopy {
					if cc, ok := d.makeVars["CROSS_COMPILE"]; ok {
						r.MakeVars["OBJCOPY"] = cc + "objcopy"
					} else {
						r.MakeVars["OBJCOPY"] = "objcopy"
					}
				}
				if lsm.Version().LessThan(version(5, 7, 0)) {
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
