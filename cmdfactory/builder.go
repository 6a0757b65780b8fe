// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package cmdfactory builds cobra commands from annotated structs.
// Flags are declared as struct fields with `long`, `short`, `usage`,
// `env` and `default` tags and bound back to the fields before the
// command runs.
package cmdfactory

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unsafe"

	"github.com/spf13/cobra"

	"lkt.sh/log"
)

var caseRegexp = regexp.MustCompile("([a-z])([A-Z])")

type PreRunnable interface {
	Pre(cmd *cobra.Command, args []string) error
}

type Runnable interface {
	Run(ctx context.Context, args []string) error
}

type fieldInfo struct {
	FieldType  reflect.StructField
	FieldValue reflect.Value
}

func fields(obj any) []fieldInfo {
	var objValue reflect.Value
	ptrValue := reflect.ValueOf(obj)
	if ptrValue.Kind() == reflect.Ptr {
		objValue = ptrValue.Elem()
	} else {
		objValue = ptrValue
	}

	var result []fieldInfo

	for i := 0; i < objValue.NumField(); i++ {
		fieldType := objValue.Type().Field(i)
		if fieldType.Anonymous && fieldType.Type.Kind() == reflect.Struct {
			result = append(result, fields(objValue.Field(i).Addr().Interface())...)
		} else if !fieldType.Anonymous {
			result = append(result, fieldInfo{
				FieldValue: objValue.Field(i),
				FieldType:  objValue.Type().Field(i),
			})
		}
	}

	return result
}

// Name derives the command name from the type name of the Runnable.
func Name(obj any) string {
	ptrValue := reflect.ValueOf(obj)
	objValue := ptrValue.Elem()
	commandName := strings.Replace(objValue.Type().Name(), "Command", "", 1)
	commandName, _ = name(commandName, "", "")
	return commandName
}

// Main executes the given command.
func Main(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.G(ctx).Error(err)
		return 1
	}

	return 0
}

// AttributeFlags associates the public attributes of the given struct
// with the provided cobra command so that CLI flags populate its
// fields.
func AttributeFlags(c *cobra.Command, obj any) error {
	slices := map[string]reflect.Value{}

	for _, info := range fields(obj) {
		fieldType := info.FieldType
		v := info.FieldValue

		if strings.ToUpper(fieldType.Name[0:1]) != fieldType.Name[0:1] {
			continue
		}

		if fieldType.Tag.Get("noattribute") == "true" {
			continue
		}

		name, alias := name(fieldType.Name, fieldType.Tag.Get("long"), fieldType.Tag.Get("short"))
		usage := fieldType.Tag.Get("usage")
		envName := fieldType.Tag.Get("env")
		defValue := fieldType.Tag.Get("default")
		defInt, err := strconv.Atoi(defValue)
		if err != nil {
			defInt = 0
		}
		strValue := fmt.Sprint(v)

		// An environment value takes precedence over the field's
		// current value.
		if envName != "" {
			if envValue := os.Getenv(envName); envValue != "" {
				strValue = envValue
			}
		}

		if strValue == "" && defValue != "" {
			strValue = defValue
		}

		flags := c.PersistentFlags()
		if fieldType.Tag.Get("local") == "true" {
			flags = c.Flags()
		}

		switch fieldType.Type.Kind() {
		case reflect.Uint, reflect.Uint64:
			flags.UintVarP((*uint)(unsafe.Pointer(v.Addr().Pointer())), name, alias, uint(defInt), usage)
		case reflect.Int, reflect.Int64:
			flags.IntVarP((*int)(unsafe.Pointer(v.Addr().Pointer())), name, alias, defInt, usage)
		case reflect.String:
			flags.StringVarP((*string)(unsafe.Pointer(v.Addr().Pointer())), name, alias, defValue, usage)
			if err := flags.Set(name, strValue); err != nil {
				return err
			}
		case reflect.Bool:
			flags.BoolVarP((*bool)(unsafe.Pointer(v.Addr().Pointer())), name, alias, false, usage)
			if err := flags.Set(name, strValue); err != nil {
				return err
			}
		case reflect.Slice:
			slices[name] = v
			if ptr := (*[]string)(unsafe.Pointer(v.Addr().Pointer())); *ptr != nil {
				flags.StringSliceVarP(ptr, name, alias, *ptr, usage)
			} else {
				flags.StringSliceP(name, alias, nil, usage)
			}
		case reflect.Struct:
			if !v.CanAddr() {
				continue
			}

			if err := AttributeFlags(c, v.Addr().Interface()); err != nil {
				return err
			}
		default:
			continue
		}

		if fieldType.Tag.Get("hidden") == "true" {
			if err := flags.MarkHidden(name); err != nil {
				return err
			}
		}
	}

	c.PreRunE = bind(c.PreRunE, slices)
	c.RunE = bind(c.RunE, slices)

	return nil
}

// New populates a cobra.Command by extracting flags from the struct
// tags of the passed Runnable, whose Run method becomes the command's
// RunE.
func New(obj Runnable, cmd cobra.Command) (*cobra.Command, error) {
	c := cmd
	if c.Use == "" {
		c.Use = fmt.Sprintf("%s [FLAGS]", Name(obj))
	}

	if p, ok := obj.(PreRunnable); ok {
		c.PreRunE = p.Pre
	}

	c.SilenceErrors = true
	c.SilenceUsage = true
	c.DisableFlagsInUseLine = true
	c.InitDefaultHelpFlag()
	c.InitDefaultCompletionCmd()

	if obj != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			return obj.Run(cmd.Context(), args)
		}

		if err := AttributeFlags(&c, obj); err != nil {
			return nil, err
		}
	}

	c.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return FlagErrorWrap(err)
	})

	return &c, nil
}

func assignSlices(app *cobra.Command, slices map[string]reflect.Value) error {
	for k, v := range slices {
		s, err := app.Flags().GetStringSlice(k)
		if err != nil {
			continue
		}
		a := app.Flags().Lookup(k)
		if a.Changed && len(s) == 0 {
			s = []string{""}
		}
		if s != nil {
			v.Set(reflect.ValueOf(s[:]))
		}
	}
	return nil
}

func name(name, setName, short string) (string, string) {
	if setName != "" {
		return setName, short
	}
	parts := strings.Split(name, "_")
	i := len(parts) - 1
	name = caseRegexp.ReplaceAllString(parts[i], "$1-$2")
	name = strings.ToLower(name)
	result := append([]string{name}, parts[0:i]...)
	for i := 0; i < len(result); i++ {
		result[i] = strings.ToLower(result[i])
	}
	if short == "" && len(result) > 1 {
		short = result[1]
	}
	return result[0], short
}

func bind(next func(*cobra.Command, []string) error,
	slices map[string]reflect.Value,
) func(*cobra.Command, []string) error {
	if next == nil {
		return nil
	}
	return func(cmd *cobra.Command, args []string) error {
		if err := assignSlices(cmd, slices); err != nil {
			return err
		}

		return next(cmd, args)
	}
}
