// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package arch

import (
	"context"
	"fmt"

	"lkt.sh/runner"
)

func runHexagon(ctx context.Context, input *Input) ([]*runner.Result, error) {
	d := newDriver("hexagon", "hexagon-linux-musl", input)
	lsm := input.LSM

	d.makeVars["LLVM_IAS"] = "1"

	if input.OnlyTestBoot {
		return d.skipAll("only testing boot", "Only boot testing was requested"), nil
	}

	if !(lsm.HasCommit("788dcee0306e1") && lsm.HasCommit("f1f99adf05f21")) {
		printText := "Hexagon needs the following fixes from Linux 5.13 to build properly:\n" +
			"\n" +
			"  * https://git.kernel.org/linus/788dcee0306e1bdbae1a76d1b3478bb899c5838e\n" +
			"  * https://git.kernel.org/linus/6fff7410f6befe5744d54f0418d65a6322998c09\n" +
			"  * https://git.kernel.org/linus/f1f99adf05f2138ff2646d756d4674e302e8d02d\n" +
			"\n" +
			"Provide a kernel tree with Linux 5.13+ or one with these fixes to build Hexagon kernels."

		return d.skipAll("missing 788dcee0306e, 6fff7410f6be, and/or f1f99adf05f2", printText), nil
	}

	if !lsm.HasCommit("6f5b41a2f5a63") {
		d.makeVars["CROSS_COMPILE"] = "hexagon-linux-musl"
	}

	if input.Targets.Contains("def") {
		r := runner.New()
		r.Configs = []string{"defconfig"}
		d.runners = append(d.runners, r)
	}

	if input.Targets.Contains("other") {
		// https://github.com/ClangBuiltLinux/linux/issues/1407
		minLLVMForAllmod := version(13, 0, 0)
		if lsm.HasCommit("ffb92ce826fd8") && !input.LLVMVersion.LessThan(minLLVMForAllmod) {
			r := runner.New()
			r.Configs = []string{"allmodconfig"}
			if lsm.HasConfig("CONFIG_WERROR") {
				r.Configs = append(r.Configs, "CONFIG_WERROR=n")
			}
			d.runners = append(d.runners, r)
		} else {
			d.skipOne("hexagon allmodconfig",
				fmt.Sprintf("either lack of ffb92ce826fd8 or LLVM < %s ('%s')",
					minLLVMForAllmod, input.LLVMVersion))
		}
	}

	return d.execute(ctx)
}
