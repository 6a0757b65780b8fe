// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package report aggregates build and boot results, prints them to the
// user and persists them as log files for later processing.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"lkt.sh/runner"
	"lkt.sh/source"
	"lkt.sh/toolchain"
)

var issueRe = regexp.MustCompile(`error:|warning:|undefined`)

var headerStyle = lipgloss.NewStyle().Bold(true)

// Header prints a bold banner around the provided text.
func Header(text string) {
	border := strings.Repeat("=", len(text)+6)
	fmt.Printf("\n%s\n", headerStyle.Render(fmt.Sprintf("%s\n== %s ==\n%s", border, text, border)))
}

type envEntry struct {
	label string
	value string
}

// Report collects results over a whole run and renders the final
// summary.
type Report struct {
	Folders runner.Folders

	lsm       *source.Manager
	envInfo   []envEntry
	good      []string
	bad       []string
	skip      []string
	startTime time.Time
}

// New instantiates a report whose total duration starts counting now.
func New(folders runner.Folders, lsm *source.Manager) *Report {
	return &Report{
		Folders:   folders,
		lsm:       lsm,
		startTime: time.Now(),
	}
}

func (r *Report) generateEnvInfo(ctx context.Context) error {
	if r.Folders.Source == "" {
		return fmt.Errorf("cannot generate environment information without source location")
	}
	if _, err := os.Stat(r.Folders.Source); err != nil {
		return fmt.Errorf("provided source location does not exist: %w", err)
	}

	clangVersion, clangLocation, err := toolchain.BinaryInfo(ctx, "clang")
	if err != nil {
		return err
	}

	binutilsVersion, binutilsLocation, err := toolchain.BinaryInfo(ctx, "as")
	if err != nil {
		return err
	}

	banner, err := r.lsm.KernelBanner(ctx)
	if err != nil {
		return err
	}

	r.envInfo = []envEntry{
		{"clang version", clangVersion},
		{"clang location", clangLocation},
		{"binutils version", binutilsVersion},
		{"binutils location", binutilsLocation},
		{"Linux version", banner},
		{"Linux source location", r.Folders.Source},
		{"PATH", os.Getenv("PATH")},
	}

	return nil
}

// ShowEnvInfo prints the toolchain and kernel environment the run is
// operating in.
func (r *Report) ShowEnvInfo(ctx context.Context) error {
	if len(r.envInfo) == 0 {
		if err := r.generateEnvInfo(ctx); err != nil {
			return err
		}
	}

	Header("Environment information")
	for _, entry := range r.envInfo {
		fmt.Printf("%s: %s\n", entry.label, entry.value)
	}

	return nil
}

// Generate categorizes all results, prints the final summary and writes
// the info, success, failed and skipped logs.
func (r *Report) Generate(ctx context.Context, results []*runner.Result) error {
	for _, result := range results {
		kernel := []string{result.Name, result.Build}
		if result.Duration != "" {
			kernel = append(kernel, "in", result.Duration)
		}
		if result.Reason != "" {
			kernel = append(kernel, "due to", result.Reason)
		}

		entry := []string{strings.Join(kernel, " ")}

		if result.Build == runner.StatusFailed {
			if issues := r.extractIssues(result.Log); len(issues) > 0 {
				entry = append(entry, strings.Join(issues, "\n"))
			}
		}

		text := strings.Join(entry, "\n")

		switch result.Build {
		case runner.StatusFailed:
			r.bad = append(r.bad, text)
		case runner.StatusSkipped:
			r.skip = append(r.skip, text)
		case runner.StatusSuccessful:
			r.good = append(r.good, text)
		default:
			return fmt.Errorf("could not handle build result '%s'", result.Build)
		}

		if result.Boot != "" {
			boot := fmt.Sprintf("%s qemu boot %s", result.Name, result.Boot)
			switch {
			case strings.HasPrefix(result.Boot, runner.StatusFailed):
				r.bad = append(r.bad, boot)
			case strings.HasPrefix(result.Boot, runner.StatusSkipped):
				r.skip = append(r.skip, boot)
			case strings.HasPrefix(result.Boot, runner.StatusSuccessful):
				r.good = append(r.good, boot)
			default:
				return fmt.Errorf("could not handle boot result '%s'", result.Boot)
			}
		}
	}

	totalDuration := fmt.Sprintf("Total script duration: %s", runner.FormatDuration(time.Since(r.startTime)))

	if err := r.ShowEnvInfo(ctx); err != nil {
		return err
	}
	fmt.Printf("\n%s\n", totalDuration)

	if len(r.good) > 0 {
		Header("List of successful tests")
		fmt.Println(strings.Join(r.good, "\n"))
	}

	if len(r.bad) > 0 {
		Header("List of failed tests")
		fmt.Println(strings.Join(r.bad, "\n"))
	}

	if len(r.skip) > 0 {
		Header("List of skipped tests")
		fmt.Println(strings.Join(r.skip, "\n"))
	}

	if err := os.MkdirAll(r.Folders.Log, 0o755); err != nil {
		return err
	}

	var info strings.Builder
	for _, entry := range r.envInfo {
		fmt.Fprintf(&info, "%s: %s\n", entry.label, entry.value)
	}
	fmt.Fprintf(&info, "\n%s\n", totalDuration)

	if err := os.WriteFile(filepath.Join(r.Folders.Log, "info.log"), []byte(info.String()), 0o644); err != nil {
		return err
	}

	for _, category := range []struct {
		name    string
		entries []string
	}{
		{"success.log", r.good},
		{"failed.log", r.bad},
		{"skipped.log", r.skip},
	} {
		if len(category.entries) == 0 {
			continue
		}

		text := strings.Join(category.entries, "\n\n") + "\n"
		if err := os.WriteFile(filepath.Join(r.Folders.Log, category.name), []byte(text), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// extractIssues pulls compiler and linker diagnostics out of a build
// log, trimming the source folder prefix for readability.
func (r *Report) extractIssues(logPath string) []string {
	contents, err := os.ReadFile(logPath)
	if err != nil {
		return nil
	}

	var issues []string
	for _, line := range strings.Split(string(contents), "\n") {
		if issueRe.MatchString(line) {
			issues = append(issues, strings.ReplaceAll(line, r.Folders.Source+"/", ""))
		}
	}

	return issues
}
