// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package source

import (
	"os"
	"path/filepath"
	"testing"

	"lkt.sh/internal/set"
)

func TestParseKernelVersion(t *testing.T) {
	tests := []struct {
		output  string
		want    string
		wantErr bool
	}{
		{"6.1.55\n", "6.1.55", false},
		{"6.6.0-rc4\n", "6.6.0", false},
		{"5.15.132", "5.15.132", false},
		{"not-a-version\n", "", true},
	}

	for _, tt := range tests {
		got, err := parseKernelVersion(tt.output)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseKernelVersion(%q): expected an error", tt.output)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseKernelVersion(%q): %v", tt.output, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("parseKernelVersion(%q) = %s, want %s", tt.output, got, tt.want)
		}
	}
}

func TestCheckClean(t *testing.T) {
	dir := t.TempDir()
	if err := checkClean(dir); err != nil {
		t.Fatal("expected a pristine tree to be clean:", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".config"), []byte("CONFIG_WERROR=y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := checkClean(dir); err == nil {
		t.Error("expected a tree with a stale .config to be rejected")
	}
	if err := os.Remove(filepath.Join(dir, ".config")); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "include/config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := checkClean(dir); err == nil {
		t.Error("expected a tree with include/config to be rejected")
	}
}

func TestCommitProbes(t *testing.T) {
	// One representative snippet per probe mechanism, lifted from the
	// upstream files the probes inspect.
	tests := []struct {
		id   string
		text string
		want bool
	}{
		{
			id:   "89245600941e4",
			text: "CC_FLAGS_CFI\t:= -fsanitize=kcfi\n",
			want: true,
		},
		{
			id:   "89245600941e4",
			text: "CC_FLAGS_CFI\t:= -fsanitize=cfi\n",
			want: false,
		},
		{
			id:   "bb73d07148c40",
			text: "\tcase R_386_PLT32:\n\t\tbreak;\n",
			want: true,
		},
		{
			id:   "ec3a5cb61146c",
			text: "ifeq ($(CONFIG_LD_IS_LLD),y)\nKBUILD_CFLAGS += -mno-relax\nendif\n",
			want: true,
		},
		{
			id:   "80ddf5ce1c929",
			text: "config RELOCATABLE\n\tdef_bool y\n",
			want: true,
		},
		{
			id:   "80ddf5ce1c929",
			text: "config RELOCATABLE\n\tbool \"Build a relocatable kernel\"\n",
			want: false,
		},
	}

	for _, tt := range tests {
		var probe *commitProbe
		for i := range commitProbes {
			if commitProbes[i].id == tt.id {
				probe = &commitProbes[i]
				break
			}
		}
		if probe == nil {
			t.Fatalf("no probe for %s", tt.id)
		}

		if got := probe.pattern.MatchString(tt.text); got != tt.want {
			t.Errorf("probe %s on %q = %v, want %v", tt.id, tt.text, got, tt.want)
		}
	}
}

func TestNegativeCommitProbes(t *testing.T) {
	for _, probe := range negativeCommitProbes {
		if probe.id == "efe5e0fea4b24" {
			old := `		"oi	%0,%b1\n"`
			if !probe.pattern.MatchString(old) {
				t.Errorf("probe %s should match the pre-commit bitops text", probe.id)
			}
			if probe.pattern.MatchString(`		"lr	%0,%1\n"`) {
				t.Errorf("probe %s should not match the post-commit bitops text", probe.id)
			}
		}
	}
}

func TestManagerQueries(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "arch/arm64/configs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "arch/arm64/configs/virt.config"), []byte("CONFIG_VIRTIO=y\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manager{
		dir:     dir,
		commits: set.NewStringSet("6f5b41a2f5a63"),
		configs: set.NewStringSet("CONFIG_WERROR"),
	}

	if !m.HasCommit("6f5b41a2f5a63") {
		t.Error("expected HasCommit to report a probed commit")
	}
	if m.HasCommit("0000000000000") {
		t.Error("expected HasCommit to reject an unknown commit")
	}
	if !m.HasConfig("CONFIG_WERROR") {
		t.Error("expected HasConfig to report a probed symbol")
	}
	if !m.FileExists("arch/arm64/configs/virt.config") {
		t.Error("expected FileExists to find the fixture file")
	}
	if m.FileExists("arch/arm64/configs/nope.config") {
		t.Error("expected FileExists to reject a missing file")
	}
	if got := m.ReadFile("arch/arm64/configs/virt.config"); got != "CONFIG_VIRTIO=y\n" {
		t.Errorf("ReadFile = %q", got)
	}
	if got := m.ReadFile("does/not/exist"); got != "" {
		t.Errorf("ReadFile on a missing file = %q, want empty", got)
	}
}
