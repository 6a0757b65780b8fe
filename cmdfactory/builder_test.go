// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package cmdfactory

import (
	"context"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type Build struct {
	Architectures []string `long:"arch" short:"a" usage:"architectures to build"`
	LinuxFolder   string   `long:"linux-folder" short:"l" usage:"kernel source location"`
	LogLevel      string   `long:"log" usage:"log level" default:"info"`
	OnlyTestBoot  bool     `long:"boot-only" usage:"only test boot"`
	Jobs          int      `long:"jobs" short:"j" usage:"parallel jobs" default:"4"`

	ran bool
}

func (b *Build) Run(_ context.Context, _ []string) error {
	b.ran = true
	return nil
}

func TestNew(t *testing.T) {
	obj := &Build{}
	cmd, err := New(obj, cobra.Command{
		Use:  "build",
		Args: cobra.NoArgs,
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd.SetArgs([]string{
		"--arch", "arm64,x86_64",
		"-l", "/src/linux",
		"--log", "debug",
		"--boot-only",
	})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !obj.ran {
		t.Error("Run was not invoked")
	}
	if want := []string{"arm64", "x86_64"}; !reflect.DeepEqual(obj.Architectures, want) {
		t.Errorf("Architectures = %v, want %v", obj.Architectures, want)
	}
	if obj.LinuxFolder != "/src/linux" {
		t.Errorf("LinuxFolder = %q, want %q", obj.LinuxFolder, "/src/linux")
	}
	if obj.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", obj.LogLevel, "debug")
	}
	if !obj.OnlyTestBoot {
		t.Error("OnlyTestBoot = false, want true")
	}
	if obj.Jobs != 4 {
		t.Errorf("Jobs = %d, want default 4", obj.Jobs)
	}
}

func TestAttributeFlagsDefaults(t *testing.T) {
	obj := &Build{}
	cmd, err := New(obj, cobra.Command{Use: "build", Args: cobra.NoArgs})
	if err != nil {
		t.Fatal(err)
	}

	cmd.SetArgs([]string{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	if obj.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", obj.LogLevel, "info")
	}
	if obj.OnlyTestBoot {
		t.Error("OnlyTestBoot = true, want default false")
	}
}

func TestName(t *testing.T) {
	for _, tc := range []struct {
		in    string
		long  string
		short string
		want  string
	}{
		{"LinuxFolder", "", "", "linux-folder"},
		{"LogLevel", "log", "", "log"},
		{"Jobs", "", "j", "jobs"},
	} {
		got, _ := name(tc.in, tc.long, tc.short)
		if got != tc.want {
			t.Errorf("name(%q, %q, %q) = %q, want %q", tc.in, tc.long, tc.short, got, tc.want)
		}
	}
}
