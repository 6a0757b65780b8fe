// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lkt.sh/cmdfactory"
	"lkt.sh/internal/version"
)

type Version struct{}

// NewVersion builds the version subcommand.
func NewVersion() *cobra.Command {
	cmd, err := cmdfactory.New(&Version{}, cobra.Command{
		Use:   "version",
		Short: "Show lkt version information",
		Args:  cobra.NoArgs,
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *Version) Run(_ context.Context, _ []string) error {
	fmt.Printf("lkt %s\n", version.String())

	return nil
}
