// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package report

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"lkt.sh/runner"
)

func TestExtractIssues(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "arm64-defconfig.log")
	contents := `make[1]: Entering directory '/build/arm64'
/src/linux/drivers/gpu/drm/drm_edid.c:201:5: warning: variable 'len' set but not used [-Wunused-but-set-variable]
  CC      kernel/sched/core.o
/src/linux/kernel/sched/core.c:99:2: error: call to undeclared function 'foo'
ld.lld: error: undefined symbol: bar
  LD      vmlinux
`
	if err := os.WriteFile(log, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	rep := &Report{Folders: runner.Folders{Source: "/src/linux"}}
	want := []string{
		"drivers/gpu/drm/drm_edid.c:201:5: warning: variable 'len' set but not used [-Wunused-but-set-variable]",
		"kernel/sched/core.c:99:2: error: call to undeclared function 'foo'",
		"ld.lld: error: undefined symbol: bar",
	}
	if got := rep.extractIssues(log); !reflect.DeepEqual(got, want) {
		t.Errorf("extractIssues = %v, want %v", got, want)
	}
}

func TestExtractIssuesMissingLog(t *testing.T) {
	rep := &Report{}
	if got := rep.extractIssues(filepath.Join(t.TempDir(), "nope.log")); got != nil {
		t.Errorf("extractIssues on a missing log = %v, want nil", got)
	}
}
