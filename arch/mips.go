// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"strings"

	"lkt.sh/runner"
	"lkt.sh/toolchain"
)

func newMipsRunner() *runner.Runner {
	r := runner.New()
	r.BootArch = "mipsel"
	r.ImageTarget = "vmlinux"
	r.QemuArch = "mipsel"

	return r
}

func runMips(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("mips", "mips-linux-gnu", input)
	lsm := input.LSM

	crossCompile := ""
	for _, candidate := range []string{"mips64-linux-gnu-", "mips-linux-gnu-", "mipsel-linux-gnu-"} {
		if toolchain.HaveBinary(candidate + "as") {
			crossCompile = candidate
		}
	}

	if !lsm.Version().LessThan(version(5, 15, 0)) {
		d.makeVars["LLVM_IAS"] = "1"
	} else {
		d.makeVars["CROSS_COMPILE"] = crossCompile
	}

	beVars := map[string]string{}
	if lsm.HasCommit("e91946d6d93ef") && input.LLVMVersion.LessThan(version(13, 0, 0)) {
		beVars["LD"] = crossCompile + "ld"
	}

	if input.Targets.Contains("def") {
		var runners []*runner.Runner

		var extraConfigs []string
		if !lsm.HasCommit("c47c7ab9b5363") {
			extraConfigs = append(extraConfigs, "CONFIG_BLK_DEV_INITRD=y")
		}

		r := newMipsRunner()
		r.Configs = append([]string{"malta_defconfig"}, extraConfigs...)
		runners = append(runners, r)

		r = newMipsRunner()
		r.Configs = append([]string{
			"malta_defconfig",
			"CONFIG_RELOCATABLE=y",
			"CONFIG_RELOCATION_TABLE_SIZE=0x00200000",
			"CONFIG_RANDOMIZE_BASE=y",
		}, extraConfigs...)
		runners = append(runners, r)

		r = newMipsRunner()
		r.BootArch = "mips"
		r.Configs = append([]string{
			"malta_defconfig",
			"CONFIG_CPU_BIG_ENDIAN=y",
		}, extraConfigs...)
		for key, val := range beVars {
			r.MakeVars[key] = val
		}
		r.QemuArch = "mips"
		runners = append(runners, r)

		for _, r := range runners {
			r.Bootable = true
			r.OnlyTestBoot = input.OnlyTestBoot
		}
		d.runners = append(d.runners, runners...)

		if !input.OnlyTestBoot {
			genericConfigs := []string{"32r1", "32r1el", "32r2", "32r2el"}
			if !input.LLVMVersion.LessThan(version(12, 0, 0)) {
				genericConfigs = append(genericConfigs, "32r6", "32r6el")
			}
			for _, generic := range genericConfigs {
				r = newMipsRunner()
				if strings.Contains(generic, "32r1") {
					r.MakeVars["CROSS_COMPILE"] = crossCompile
					r.OverrideMakeVars["LLVM_IAS"] = "0"
				}
				if !strings.Contains(generic, "el") {
					for key, val := range beVars {
						r.MakeVars[key] = val
					}
				}
				r.Configs = []string{generic + "_defconfig"}
				d.runners = append(d.runners, r)
			}
		}
	}

	if !input.OnlyTestBoot && input.Targets.Contains("other") {
		for _, target := range []string{"allnoconfig", "tinyconfig"} {
			r := newMipsRunner()
			r.Configs = []string{target}
			for key, val := range beVars {
				r.MakeVars[key] = val
			}
			d.runners = append(d.runners, r)
		}
	}

	return d.execute(ctx)
}
