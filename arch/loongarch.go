// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"fmt"
	"strings"

	"lkt.sh/runner"
	"lkt.sh/toolchain"
)

func newLoongArchRunner() *runner.Runner {
	r := runner.New()
	r.BootArch = "loongarch"
	r.ImageTarget = "vmlinuz.efi"
	r.QemuArch = "loongarch64"

	return r
}

func runLoongArch(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("loongarch", "loongarch64-linux-gnusf", input)
	lsm := input.LSM

	d.makeVars["LLVM_IAS"] = "1"

	if input.LLVMVersion.LessThan(version(17, 0, 0)) {
		return d.skipAll("LLVM < 17.0.0",
			"LoongArch requires LLVM 17.0.0 or newer to build properly with LLVM=1"), nil
	}

	if !lsm.HasCommit("65eea6b44a5dd") {
		printText := "LoongArch needs the following series from Linux 6.5 to build properly:\n" +
			"\n" +
			"  * https://git.kernel.org/torvalds/l/65eea6b44a5dd332c50390fdaeda7e197802c484\n" +
			"\n" +
			"Provide a kernel tree with Linux 6.5+ or one with this series to build LoongArch kernels."

		return d.skipAll("missing 65eea6b44a5dd", printText), nil
	}

	// See https://github.com/ClangBuiltLinux/linux/issues/1787#issuecomment-1603764274 for more info
	brokenConfigs := []string{
		"CONFIG_MODULES=n", // need __attribute__((model("extreme"))) in clang
	}
	if !strings.Contains(lsm.ReadFile("arch/loongarch/Makefile"), "--apply-dynamic-relocs") {
		brokenConfigs = append(brokenConfigs,
			"CONFIG_CRASH_DUMP=n",  // selects RELOCATABLE
			"CONFIG_RELOCATABLE=n", // ld.lld prepopulates GOT?
		)
	}

	if input.Targets.Contains("def") {
		r := newLoongArchRunner()
		r.Bootable = true
		r.Configs = append([]string{"defconfig"}, brokenConfigs...)
		r.OnlyTestBoot = input.OnlyTestBoot
		d.runners = append(d.runners, r)

		r = newLoongArchRunner()
		r.Bootable = true
		r.Configs = append(append([]string{"defconfig"}, brokenConfigs...), "CONFIG_LTO_CLANG_THIN=y")
		r.OnlyTestBoot = input.OnlyTestBoot
		d.runners = append(d.runners, r)
	}

	if !input.OnlyTestBoot && input.Targets.Contains("other") {
		// Eventually, allmodconfig instead
		r := newLoongArchRunner()
		r.Configs = append([]string{"allyesconfig"}, brokenConfigs...)
		// https://github.com/ClangBuiltLinux/linux/issues/1895
		if lsm.HasCommit("2363088eba2ec") {
			r.Configs = append(r.Configs, "CONFIG_KCOV=n")
		}
		if lsm.HasConfig("CONFIG_WERROR") {
			r.Configs = append(r.Configs, "CONFIG_WERROR=n")
		}
		d.runners = append(d.runners, r)

		r = newLoongArchRunner()
		r.Configs = append(append([]string{"allyesconfig"}, brokenConfigs...),
			"CONFIG_FTRACE=n",
			"CONFIG_GCOV_KERNEL=n",
			"CONFIG_LTO_CLANG_THIN=y",
		)
		if lsm.HasCommit("2363088eba2ec") {
			r.Configs = append(r.Configs, "CONFIG_KCOV=n")
		}
		if lsm.HasConfig("CONFIG_WERROR") {
			r.Configs = append(r.Configs, "CONFIG_WERROR=n")
		}
		d.runners = append(d.runners, r)
	}

	// QEMU older than 8.0.0 hits an assert in Loongson's EDK2 firmware.
	qemuVersion, err := toolchain.QemuVersion(ctx, "loongarch64")
	if err != nil {
		return nil, err
	}
	if qemuVersion.LessThan(version(8, 0, 0)) {
		for _, r := range d.runners {
			if r.Bootable {
				r.Bootable = false
				r.SkippedBoot = fmt.Sprintf("skipped due to qemu older than 8.0.0 (found %s)", qemuVersion)
			}
		}
	}

	return d.execute(ctx)
}
