// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyConfigs(t *testing.T) {
	dir := t.TempDir()
	dotConfig := filepath.Join(dir, ".config")
	contents := strings.Join([]string{
		`CONFIG_EXTRA_FIRMWARE=""`,
		`CONFIG_LOCALVERSION="-cbl"`,
		"CONFIG_WERROR=y",
		"# CONFIG_DEBUG_INFO_BTF is not set",
		"",
	}, "\n")
	if err := os.WriteFile(dotConfig, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Runner{dotConfig: dotConfig}

	var logBuf bytes.Buffer
	requested := []string{
		`CONFIG_EXTRA_FIRMWARE=""`,
		`CONFIG_LOCALVERSION="-cbl"`,
		"CONFIG_WERROR=y",
		"CONFIG_DEBUG_INFO_BTF=n",
		"CONFIG_BPF_PRELOAD=n",
		"CONFIG_SHADOW_CALL_STACK=y",
	}
	if err := r.verifyConfigs(context.Background(), requested, &logBuf); err != nil {
		t.Fatal(err)
	}

	out := logBuf.String()
	if !strings.Contains(out, "CONFIG_SHADOW_CALL_STACK=y") {
		t.Errorf("absent option was not reported, log: %q", out)
	}
	for _, satisfied := range []string{
		"EXTRA_FIRMWARE",
		"LOCALVERSION",
		"WERROR",
		"DEBUG_INFO_BTF",
		"BPF_PRELOAD",
	} {
		if strings.Contains(out, satisfied) {
			t.Errorf("satisfied option %s was reported as missing, log: %q", satisfied, out)
		}
	}
}

func TestVerifyConfigsAllPresent(t *testing.T) {
	dir := t.TempDir()
	dotConfig := filepath.Join(dir, ".config")
	if err := os.WriteFile(dotConfig, []byte("CONFIG_WERROR=y\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Runner{dotConfig: dotConfig}

	var logBuf bytes.Buffer
	if err := r.verifyConfigs(context.Background(), []string{"CONFIG_WERROR=y"}, &logBuf); err != nil {
		t.Fatal(err)
	}

	if logBuf.Len() != 0 {
		t.Errorf("expected no warning, log: %q", logBuf.String())
	}
}
