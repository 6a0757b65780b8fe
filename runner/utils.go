// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lkt.sh/exec"
	"lkt.sh/kconfig"
)

// FormatDuration renders a duration the way humans read build times,
// e.g. "1h 3m 42s".
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())

	days := seconds / (60 * 60 * 24)
	seconds -= days * 60 * 60 * 24
	hours := seconds / (60 * 60)
	seconds -= hours * 60 * 60
	minutes := seconds / 60
	seconds -= minutes * 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// logName derives a filesystem-safe log file name from a result name.
// Names are capped well under NAME_MAX so ".log" still fits.
func logName(name string) string {
	sanitized := strings.ReplaceAll(name, " ", "-")
	sanitized = strings.ReplaceAll(sanitized, "-+-", "-")
	sanitized = strings.ReplaceAll(sanitized, `""`, "")

	if len(sanitized) > 251 {
		sanitized = sanitized[0:251]
	}

	return sanitized
}

// distroName extracts the distribution a bundled configuration belongs
// to from its path, e.g. configs/alpine/x86_64.config -> alpine.
func distroName(config string) string {
	return filepath.Base(filepath.Dir(config))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// commandSucceeds runs a binary with no arguments and reports whether
// it exited zero.
func commandSucceeds(ctx context.Context, bin string) bool {
	executable, err := exec.NewExecutable(bin, nil)
	if err != nil {
		return false
	}

	process, err := exec.NewProcessFromExecutable(executable, exec.WithStdout(io.Discard))
	if err != nil {
		return false
	}

	return process.StartAndWait(ctx) == nil
}

// ConfigValue reads the value of a configuration symbol from a
// configuration file, or from <path>/.config when path is a directory.
// Symbols which are explicitly unset yield "n", absent symbols yield an
// empty string and quoted values are unwrapped.
func ConfigValue(path, name string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ".config")
	}

	dotcfg, err := kconfig.ParseConfig(path)
	if err != nil {
		return ""
	}

	cfg := dotcfg.Map[strings.TrimPrefix(name, "CONFIG_")]
	if cfg == nil {
		return ""
	}
	if cfg.Value == kconfig.No {
		return "n"
	}

	return strings.Trim(cfg.Value, `"`)
}

func IsModular(path, name string) bool {
	return ConfigValue(path, name) == "m"
}

func IsSet(path, name string) bool {
	value := ConfigValue(path, name)
	return value != "" && value != "n"
}
