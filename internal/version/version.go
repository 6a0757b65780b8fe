// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package version

import (
	"fmt"
	"runtime"
)

var (
	version   = "No version provided"
	commit    = "No commit provided"
	buildTime = "No build timestamp provided"
)

// Version returns lkt's version string.
func Version() string {
	return version
}

// Commit returns lkt's HEAD Git commit SHA.
func Commit() string {
	return commit
}

// BuildTime returns the time at which the binary was built.
func BuildTime() string {
	return buildTime
}

// String returns all version information.
func String() string {
	return fmt.Sprintf("%s (%s) %s %s",
		version,
		commit,
		runtime.Version(),
		buildTime,
	)
}
