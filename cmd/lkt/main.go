// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package main

import (
	"context"
	"os"
	"os/signal"

	"lkt.sh/cmdfactory"
	"lkt.sh/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.WithLogger(ctx, log.L)

	os.Exit(cmdfactory.Main(ctx, New()))
}
