// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package set_test

import (
	"reflect"
	"testing"

	"lkt.sh/internal/set"
)

func TestStringSet(t *testing.T) {
	s := set.NewStringSet("def", "other")
	s.Add("distro", "def")

	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	if !s.Contains("other") {
		t.Error("Contains(other) = false, want true")
	}
	if s.Contains("missing") {
		t.Error("Contains(missing) = true, want false")
	}
	if !s.ContainsAll("def", "distro") {
		t.Error("ContainsAll(def, distro) = false, want true")
	}
	if s.ContainsAll("def", "missing") {
		t.Error("ContainsAll(def, missing) = true, want false")
	}

	if got, want := s.ToSlice(), []string{"def", "other", "distro"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ToSlice() = %v, want %v", got, want)
	}
}
