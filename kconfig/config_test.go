// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kconfig_test

import (
	"bytes"
	"testing"

	"lkt.sh/kconfig"
)

const sampleConfig = `#
# Automatically generated file; DO NOT EDIT.
# Linux/arm64 6.1.0 Kernel Configuration
#
CONFIG_ARM64=y
CONFIG_LOCALVERSION="-cbl"
# CONFIG_WERROR is not set
CONFIG_MODULES=y
CONFIG_BLK_DEV_INITRD=m
`

func TestParseConfigData(t *testing.T) {
	cf, err := kconfig.ParseConfigData([]byte(sampleConfig), ".config")
	if err != nil {
		t.Fatal("ParseConfigData:", err)
	}

	if !cf.Enabled("ARM64") {
		t.Error("expected CONFIG_ARM64 to be enabled")
	}
	if !cf.Enabled("CONFIG_MODULES") {
		t.Error("expected the CONFIG_ prefix to be accepted in queries")
	}
	if got := cf.Value("LOCALVERSION"); got != `"-cbl"` {
		t.Errorf("LOCALVERSION = %q, want %q", got, `"-cbl"`)
	}
	if cf.Value("WERROR") != kconfig.No {
		t.Error("expected CONFIG_WERROR to be disabled")
	}
	if cf.IsSet("WERROR") {
		t.Error("IsSet should be false for a disabled option")
	}
	if !cf.Modular("BLK_DEV_INITRD") {
		t.Error("expected CONFIG_BLK_DEV_INITRD to be modular")
	}
	if cf.Value("NOT_PRESENT") != kconfig.No {
		t.Error("expected a missing option to read as disabled")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	cf, err := kconfig.ParseConfigData([]byte(sampleConfig), ".config")
	if err != nil {
		t.Fatal("ParseConfigData:", err)
	}

	out := cf.Serialize()
	if !bytes.Equal(out, []byte(sampleConfig)) {
		t.Errorf("Serialize did not round trip:\n%s", out)
	}
}

func TestSetUnset(t *testing.T) {
	cf, err := kconfig.ParseConfigData([]byte(sampleConfig), ".config")
	if err != nil {
		t.Fatal("ParseConfigData:", err)
	}

	cf.Set("WERROR", kconfig.Yes)
	if !cf.Enabled("WERROR") {
		t.Error("expected CONFIG_WERROR to be enabled after Set")
	}

	cf.Unset("MODULES")
	if cf.IsSet("MODULES") {
		t.Error("expected CONFIG_MODULES to be disabled after Unset")
	}
	if !bytes.Contains(cf.Serialize(), []byte("# CONFIG_MODULES is not set")) {
		t.Error("expected the disabled option to serialize as a comment")
	}

	cf.Set("NEW_OPTION", "0x1000")
	if got := cf.Value("NEW_OPTION"); got != "0x1000" {
		t.Errorf("NEW_OPTION = %q, want %q", got, "0x1000")
	}
}

func TestFragment(t *testing.T) {
	options := []string{"CONFIG_CPU_BIG_ENDIAN=y", "CONFIG_WERROR=n"}

	want := "CONFIG_CPU_BIG_ENDIAN=y\nCONFIG_WERROR=n\n"
	if got := string(kconfig.Fragment(options)); got != want {
		t.Errorf("Fragment = %q, want %q", got, want)
	}
}

func TestIsFragmentIsOption(t *testing.T) {
	tests := []struct {
		item     string
		fragment bool
		option   bool
	}{
		{"defconfig", false, false},
		{"configs/debian/amd64.config", true, false},
		{"CONFIG_WERROR=n", false, true},
		{"CONFIG_RELOCATION_TABLE_SIZE=0x00200000", false, true},
	}

	for _, tt := range tests {
		if got := kconfig.IsFragment(tt.item); got != tt.fragment {
			t.Errorf("IsFragment(%q) = %v, want %v", tt.item, got, tt.fragment)
		}
		if got := kconfig.IsOption(tt.item); got != tt.option {
			t.Errorf("IsOption(%q) = %v, want %v", tt.item, got, tt.option)
		}
	}
}
