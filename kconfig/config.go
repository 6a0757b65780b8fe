// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package kconfig implements reading and writing of Linux kernel .config
// files and the configuration fragments that are merged into them.  For
// Kconfig reference see:
// https://www.kernel.org/doc/html/latest/kbuild/kconfig-language.html
package kconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const DotConfigFileName = ".config"

var notSetRe = regexp.MustCompile(`^# ` + prefix + `([A-Za-z0-9_]+) is not set$`)

const (
	Yes    = "y"
	Mod    = "m"
	No     = "---===[[[is not set]]]===---" // to make it more obvious when some code writes it directly
	prefix = "CONFIG_"
)

// DotConfigFile represents a parsed .config file.  Note: config names don't
// include the CONFIG_ prefix, here and in other public interfaces; users of
// this package should never mention CONFIG_.  Use the Yes/Mod/No consts to
// check for or set a config to particular values.
type DotConfigFile struct {
	Configs []*KConfigValue
	Map     map[string]*KConfigValue // duplicates Configs for convenience

	comments []string
}

type KConfigValue struct {
	Name  string
	Value string

	comments []string
}

// Value returns the config value, or No if it is not present at all.
func (cf *DotConfigFile) Value(name string) string {
	cfg := cf.Map[strings.TrimPrefix(name, prefix)]
	if cfg == nil {
		return No
	}

	return cfg.Value
}

// Enabled reports whether the config is built in.
func (cf *DotConfigFile) Enabled(name string) bool {
	return cf.Value(name) == Yes
}

// Modular reports whether the config is built as a module.
func (cf *DotConfigFile) Modular(name string) bool {
	return cf.Value(name) == Mod
}

// IsSet reports whether the config carries any value at all, i.e. it is
// present and neither disabled nor the empty string.
func (cf *DotConfigFile) IsSet(name string) bool {
	switch cf.Value(name) {
	case No, "", "n":
		return false
	}

	return true
}

// Set changes a config value, or adds it if it is not yet present.
func (cf *DotConfigFile) Set(name, val string) {
	name = strings.TrimPrefix(name, prefix)

	cfg := cf.Map[name]
	if cfg == nil {
		cfg = &KConfigValue{
			Name:  name,
			Value: val,
		}

		cf.Map[name] = cfg
		cf.Configs = append(cf.Configs, cfg)
	}

	cfg.Value = val
	cfg.comments = append(cfg.comments, cf.comments...)
	cf.comments = nil
}

// Unset sets a config value to No, if it is present in the config.
func (cf *DotConfigFile) Unset(name string) {
	cfg := cf.Map[strings.TrimPrefix(name, prefix)]
	if cfg == nil {
		return
	}

	cfg.Value = No
}

// Serialize renders the file back into the kernel's .config format.
func (cf *DotConfigFile) Serialize() []byte {
	buf := new(bytes.Buffer)

	for _, cfg := range cf.Configs {
		for _, comment := range cfg.comments {
			fmt.Fprintf(buf, "%s\n", comment)
		}

		if cfg.Value == No {
			fmt.Fprintf(buf, "# %s%s is not set\n", prefix, cfg.Name)
		} else {
			fmt.Fprintf(buf, "%s%s=%s\n", prefix, cfg.Name, cfg.Value)
		}
	}

	for _, comment := range cf.comments {
		fmt.Fprintf(buf, "%s\n", comment)
	}

	return buf.Bytes()
}

// ParseConfig parses the input file in the kernel .config format.
func ParseConfig(file string) (*DotConfigFile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open .config file %v: %w", file, err)
	}

	return ParseConfigData(data, file)
}

// ParseConfigData parses the input data in the kernel .config format.
func ParseConfigData(data []byte, file string) (*DotConfigFile, error) {
	cf := &DotConfigFile{
		Map: make(map[string]*KConfigValue),
	}

	s := bufio.NewScanner(bytes.NewReader(data))
	// Extend the buffer: CONFIG_EXTRA_FIRMWARE and friends can carry very
	// long values.
	s.Buffer(nil, 1<<20)

	for s.Scan() {
		cf.parseLine(s.Text())
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse .config file %v: %w", file, err)
	}

	return cf, nil
}

func (cf *DotConfigFile) parseLine(text string) {
	if match := notSetRe.FindStringSubmatch(text); match != nil {
		cf.Set(match[1], No)
	} else if name, value, ok := strings.Cut(text, "="); ok && strings.HasPrefix(name, prefix) {
		cf.Set(strings.TrimPrefix(name, prefix), value)
	} else if text == "" || strings.HasPrefix(text, "#") {
		cf.comments = append(cf.comments, text)
	}
}
