// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package toolchain

import "testing"

func TestParseBinutilsVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{
			name: "upstream snapshot",
			out:  "GNU assembler (GNU Binutils) 2.39.50.20221024\nCopyright (C) 2022 Free Software Foundation, Inc.\n",
			want: "2.39.50",
		},
		{
			name: "fedora",
			out:  "GNU assembler version 2.39-3.fc38\n",
			want: "2.39.0",
		},
		{
			name: "debian",
			out:  "GNU assembler (GNU Binutils for Debian) 2.40\n",
			want: "2.40.0",
		},
		{
			name:    "empty",
			out:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBinutilsVersion(tt.out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal("parseBinutilsVersion:", err)
			}
			if got.String() != tt.want {
				t.Errorf("parseBinutilsVersion(%q) = %s, want %s", tt.out, got, tt.want)
			}
		})
	}
}

func TestParseQemuVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{
			name: "plain",
			out:  "QEMU emulator version 8.1.2\nCopyright (c) 2003-2023 Fabrice Bellard and the QEMU Project developers\n",
			want: "8.1.2",
		},
		{
			name: "distribution suffix",
			out:  "QEMU emulator version 7.2.5 (Debian 1:7.2+dfsg-7+deb12u2)\n",
			want: "7.2.5",
		},
		{
			name:    "garbage",
			out:     "qemu: command not found\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQemuVersion(tt.out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal("parseQemuVersion:", err)
			}
			if got.String() != tt.want {
				t.Errorf("parseQemuVersion(%q) = %s, want %s", tt.out, got, tt.want)
			}
		})
	}
}
