// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package exec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/shlex"
)

// Executable is a binary along with the serialized arguments it will be
// invoked with.
type Executable struct {
	bin  string
	args []string
}

// NewExecutable accepts an input argument bin which is the path or executable
// name to be ultimately executed.  The bin may contain spaces, e.g. "ccache
// clang", in which case everything after the first word is treated as leading
// arguments.  An optional interface can be provided whose attributes use the
// annotation tag `flag:"--myarg"` to aid serialization of the executable's
// command-line arguments.
func NewExecutable(bin string, face interface{}, args ...string) (*Executable, error) {
	if len(bin) == 0 {
		return nil, fmt.Errorf("binary argument cannot be empty")
	}

	e := &Executable{}

	if strings.Contains(bin, " ") {
		words, err := shlex.Split(bin)
		if err != nil {
			return nil, fmt.Errorf("could not split binary invocation: %w", err)
		}

		bin = words[0]
		e.args = words[1:]
	}

	e.bin = bin

	if face != nil {
		ifaceArgs, err := ParseInterfaceArgs(face)
		if err != nil {
			return nil, err
		}

		e.args = append(e.args, ifaceArgs...)
	}

	e.args = append(e.args, args...)

	return e, nil
}

// Bin returns the binary which is to be executed.
func (e *Executable) Bin() string {
	return e.bin
}

// Args returns the serialized arguments the binary will be invoked with.
func (e *Executable) Args() []string {
	return e.args
}

// ParseInterfaceArgs returns the array of arguments detected from an
// interface with tag annotations `flag`.
func ParseInterfaceArgs(face interface{}, args ...string) ([]string, error) {
	if reflect.ValueOf(face).Kind() == reflect.Ptr {
		return nil, fmt.Errorf("cannot derive interface arguments from pointer: passed by reference")
	}

	t := reflect.TypeOf(face)
	v := reflect.ValueOf(face)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i).Tag.Get("flag")

		if len(f) > 0 {
			switch v.Field(i).Kind() {
			case reflect.Bool:
				if !v.Field(i).Bool() {
					continue
				}

				args = append(args, f)

			case reflect.String:
				value := v.Field(i).String()
				if len(value) == 0 {
					continue
				}

				args = append(args, f, value)

			case reflect.Slice:
				for j := 0; j < v.Field(i).Len(); j++ {
					args = append(args, f, v.Field(i).Index(j).String())
				}

			case reflect.Ptr:
				if v.Field(i).IsZero() {
					continue
				}

				args = append(args, f, fmt.Sprintf("%d", reflect.Indirect(v.Field(i)).Int()))

			default:
				return nil, fmt.Errorf("unsupported flag attribute kind: %s", v.Field(i).Kind())
			}

			// Recursively iterate through embedded structures
		} else if v.Field(i).Kind() == reflect.Struct {
			structArgs, err := ParseInterfaceArgs(v.Field(i).Interface())
			if err != nil {
				return nil, err
			}

			args = append(args, structArgs...)
		}
	}

	return args, nil
}
