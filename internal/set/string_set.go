// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package set

var exists = struct{}{}

// StringSet is an insertion-ordered set of strings.
type StringSet struct {
	v []string
	m map[string]struct{}
}

// NewStringSet returns a new StringSet instance initialized with the given
// values, if any are provided.
func NewStringSet(values ...string) *StringSet {
	s := &StringSet{
		m: make(map[string]struct{}, len(values)),
		v: make([]string, 0, len(values)),
	}

	s.Add(values...)

	return s
}

func (s *StringSet) Add(values ...string) *StringSet {
	for _, value := range values {
		if s.Contains(value) {
			continue
		}
		s.m[value] = exists
		s.v = append(s.v, value)
	}

	return s
}

func (s *StringSet) Contains(value string) bool {
	_, c := s.m[value]
	return c
}

// ContainsAll reports whether every one of the provided values is present.
func (s *StringSet) ContainsAll(values ...string) bool {
	for _, value := range values {
		if !s.Contains(value) {
			return false
		}
	}

	return true
}

func (s *StringSet) Len() int {
	return len(s.v)
}

// ToSlice returns the values as a slice, in insertion order.
func (s *StringSet) ToSlice() []string {
	return s.v
}
