// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kconfig

import "strings"

// IsFragment reports whether the requested configuration item names a
// configuration fragment file rather than a single option.
func IsFragment(item string) bool {
	return strings.HasSuffix(item, ".config")
}

// IsOption reports whether the requested configuration item is a single
// CONFIG_FOO=value assignment.
func IsOption(item string) bool {
	return strings.HasPrefix(item, prefix) && strings.Contains(item, "=")
}

// Fragment renders a list of CONFIG_FOO=value assignments into the format
// consumed by merge_config.sh and KCONFIG_ALLCONFIG.  Items are written
// verbatim: disabling an option is expressed as CONFIG_FOO=n, which both
// consumers understand.
func Fragment(options []string) []byte {
	var b strings.Builder

	for _, option := range options {
		b.WriteString(option)
		b.WriteByte('\n')
	}

	return []byte(b.String())
}
