// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	for _, tc := range []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{0, "0s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{time.Hour + 3*time.Minute + 42*time.Second, "1h 3m 42s"},
		{25*time.Hour + 30*time.Second, "1d 1h 30s"},
	} {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestLogName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
	}{
		{"arm64 defconfig", "arm64-defconfig"},
		{"x86_64 allmodconfig + CONFIG_WERROR=n", "x86_64-allmodconfig-CONFIG_WERROR=n"},
		{`powerpc allmodconfig + CONFIG_WERROR=n + CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2=y`, "powerpc-allmodconfig-CONFIG_WERROR=n-CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2=y"},
	} {
		if got := logName(tc.name); got != tc.want {
			t.Errorf("logName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}

	long := strings.Repeat("a", 400)
	if got := logName(long); len(got) != 251 {
		t.Errorf("logName should cap at 251 characters, got %d", len(got))
	}
}

func TestDistroName(t *testing.T) {
	if got := distroName(filepath.Join("configs", "alpine", "x86_64.config")); got != "alpine" {
		t.Errorf("distroName = %q, want %q", got, "alpine")
	}
}

func TestConfigValue(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, ".config")
	contents := strings.Join([]string{
		"CONFIG_ARM64=y",
		"CONFIG_MODULES=m",
		`CONFIG_LOCALVERSION="-cbl"`,
		"# CONFIG_WERROR is not set",
		"",
	}, "\n")
	if err := os.WriteFile(config, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		want string
	}{
		{"CONFIG_ARM64", "y"},
		{"CONFIG_MODULES", "m"},
		{"CONFIG_LOCALVERSION", "-cbl"},
		{"CONFIG_WERROR", "n"},
		{"CONFIG_MISSING", ""},
	} {
		if got := ConfigValue(config, tc.name); got != tc.want {
			t.Errorf("ConfigValue(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}

	// A directory resolves to the .config within it.
	if got := ConfigValue(dir, "CONFIG_ARM64"); got != "y" {
		t.Errorf("ConfigValue(dir) = %q, want %q", got, "y")
	}

	if !IsSet(config, "CONFIG_ARM64") {
		t.Error("IsSet(CONFIG_ARM64) = false, want true")
	}
	if IsSet(config, "CONFIG_WERROR") {
		t.Error("IsSet(CONFIG_WERROR) = true, want false")
	}
	if IsSet(config, "CONFIG_MISSING") {
		t.Error("IsSet(CONFIG_MISSING) = true, want false")
	}
	if !IsModular(config, "CONFIG_MODULES") {
		t.Error("IsModular(CONFIG_MODULES) = false, want true")
	}
	if IsModular(config, "CONFIG_ARM64") {
		t.Error("IsModular(CONFIG_ARM64) = true, want false")
	}
}
