// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package exec_test

import (
	"reflect"
	"testing"

	"lkt.sh/exec"
)

func TestNewExecutable(t *testing.T) {
	type flags struct {
		Directory string   `flag:"-C"`
		Jobs      *int     `flag:"-j"`
		Silent    bool     `flag:"-s"`
		Verbose   bool     `flag:"-v"`
		Targets   []string `flag:"-t"`
	}

	jobs := 8

	tests := []struct {
		name     string
		bin      string
		face     interface{}
		args     []string
		wantBin  string
		wantArgs []string
	}{
		{
			name:     "plain binary",
			bin:      "make",
			wantBin:  "make",
			wantArgs: nil,
		},
		{
			name:     "binary with embedded arguments",
			bin:      "ccache clang",
			wantBin:  "ccache",
			wantArgs: []string{"clang"},
		},
		{
			name: "struct flag serialization",
			bin:  "make",
			face: flags{
				Directory: "/linux",
				Jobs:      &jobs,
				Silent:    true,
				Targets:   []string{"olddefconfig", "all"},
			},
			args:     []string{"LLVM=1"},
			wantBin:  "make",
			wantArgs: []string{"-C", "/linux", "-j", "8", "-s", "-t", "olddefconfig", "-t", "all", "LLVM=1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := exec.NewExecutable(tt.bin, tt.face, tt.args...)
			if err != nil {
				t.Fatal("NewExecutable:", err)
			}

			if e.Bin() != tt.wantBin {
				t.Errorf("Bin() = %q, want %q", e.Bin(), tt.wantBin)
			}
			if !reflect.DeepEqual(e.Args(), tt.wantArgs) {
				t.Errorf("Args() = %v, want %v", e.Args(), tt.wantArgs)
			}
		})
	}
}

func TestNewExecutableEmptyBin(t *testing.T) {
	if _, err := exec.NewExecutable("", nil); err == nil {
		t.Error("expected an error for an empty binary name")
	}
}

func TestParseInterfaceArgsRejectsPointer(t *testing.T) {
	type flags struct {
		Silent bool `flag:"-s"`
	}

	if _, err := exec.ParseInterfaceArgs(&flags{Silent: true}); err == nil {
		t.Error("expected an error when passing a struct by reference")
	}
}
