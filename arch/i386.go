// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"runtime"
	"strings"

	"lkt.sh/runner"
	"lkt.sh/source"
)

func newI386Runner() *runner.Runner {
	r := runner.New()
	r.BootArch = "x86"
	r.ImageTarget = "bzImage"
	r.QemuArch = "i386"

	return r
}

// i386BrokenFortifyConfigs returns the options that have to be turned
// off when the tree carries a known bad interaction between
// CONFIG_FORTIFY_SOURCE and clang.
// https://github.com/ClangBuiltLinux/linux/issues/1442
func i386BrokenFortifyConfigs(input *Input, lsm *source.Manager) []string {
	var brokenConfigs []string

	secKconfig := lsm.ReadFile("security/Kconfig")
	fortifyBroken := strings.Contains(secKconfig, "https://bugs.llvm.org/show_bug.cgi?id=50322") ||
		strings.Contains(secKconfig, "https://llvm.org/pr50322") ||
		strings.Contains(secKconfig, "https://github.com/llvm/llvm-project/issues/53645")

	if fortifyBroken {
		// https://github.com/ClangBuiltLinux/linux/issues/1932
		if lsm.HasConfig("CONFIG_BCACHEFS_FS") {
			brokenConfigs = append(brokenConfigs, "CONFIG_BCACHEFS_FS=n")
		}

		// https://github.com/ClangBuiltLinux/linux/issues/1442
		if input.LLVMVersion.LessThan(version(15, 0, 0)) {
			brokenConfigs = append(brokenConfigs,
				"CONFIG_IP_NF_TARGET_SYNPROXY=n",
				"CONFIG_IP6_NF_TARGET_SYNPROXY=n",
				"CONFIG_NFT_SYNPROXY=n",
			)
		}
	}

	return brokenConfigs
}

func runI386(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("i386", "i386-linux-gnu", input)
	lsm := input.LSM

	d.makeVars["LLVM_IAS"] = "1"

	if lsm.Version().LessThan(version(5, 9, 0)) {
		return d.skipAll("missing 158807de5822",
			"i386 kernels do not build properly prior to Linux 5.9: https://github.com/ClangBuiltLinux/linux/issues/194"), nil
	}
	if !input.LLVMVersion.LessThan(version(12, 0, 0)) && !lsm.HasCommit("bb73d07148c40") {
		return d.skipAll("missing bb73d07148c4 with LLVM > 12.0.0",
			"x86 kernels do not build properly with LLVM 12.0.0+ without R_386_PLT32 handling: https://github.com/ClangBuiltLinux/linux/issues/1210"), nil
	}

	if runtime.GOARCH != "amd64" {
		if !lsm.HasCommit("d5cbd80e302df") {
			return d.skipAll("missing d5cbd80e302d on a non-x86_64 host",
				"Cannot cross compile without https://git.kernel.org/linus/d5cbd80e302dfea59726c44c56ab7957f822409f"), nil
		}
		if !lsm.HasCommit("6f5b41a2f5a63") {
			d.makeVars["CROSS_COMPILE"] = "x86_64-linux-gnu-"
		}
	}

	if input.Targets.Contains("def") {
		var runners []*runner.Runner

		r := newI386Runner()
		r.Configs = []string{"defconfig"}
		runners = append(runners, r)

		if lsm.HasCommit("583bfd484bcc8") {
			r = newI386Runner()
			r.Configs = []string{"defconfig", "CONFIG_LTO_CLANG_THIN=y"}
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
			for _, target := range []string{"allmodconfig", "allnoconfig", "tinyconfig"} {
				r := newI386Runner()
				r.Configs = []string{target}
				if target == "allmodconfig" {
					r.Configs = append(r.Configs, i386BrokenFortifyConfigs(input, lsm)...)
					if lsm.HasConfig("CONFIG_WERROR") {
						r.Configs = append(r.Configs, "CONFIG_WERROR=n")
					}
				}
				d.runners = append(d.runners, r)
			}
		}

		if input.Targets.Contains("distro") {
			for _, distro := range []string{"debian", "opensuse"} {
				r := newI386Runner()
				r.DistroConfig = d.distroConfig(distro, "i386")
				r.Configs = i386BrokenFortifyConfigs(input, lsm)
				d.runners = append(d.runners, r)
			}
		}
	}

	return d.execute(ctx)
}
