// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"lkt.sh/arch"
	"lkt.sh/bootutils"
	"lkt.sh/cmdfactory"
	"lkt.sh/internal/set"
	"lkt.sh/log"
	"lkt.sh/report"
	"lkt.sh/runner"
	"lkt.sh/source"
	"lkt.sh/toolchain"
)

var supportedTargets = []string{"def", "other", "distro"}

// Lkt is the root command: build and boot test LLVM built Linux
// kernels for the requested architectures.
type Lkt struct {
	Architectures   []string `long:"architectures" short:"a" usage:"Architectures to build for (default: all)"`
	TargetsToBuild  []string `long:"targets" short:"t" usage:"Testing targets to build: def, other, distro (default: all)"`
	LinuxFolder     string   `long:"linux-folder" short:"l" usage:"Path to Linux source folder (required)"`
	BuildFolder     string   `long:"build-folder" short:"b" usage:"Path to build folder (default: 'build' folder in Linux source folder)"`
	ConfigsFolder   string   `long:"configs-folder" usage:"Path to distribution configuration folder" default:"configs"`
	LogFolder       string   `long:"log-folder" usage:"Folder to store log files in (default: logs/<date>-<time>)"`
	BootUtilsFolder string   `long:"boot-utils-folder" usage:"Path to boot-utils checkout" default:"src/boot-utils"`
	BinutilsPrefix  string   `long:"binutils-prefix" usage:"Path to binutils installation (parent of 'bin' folder)"`
	LLVMPrefix      string   `long:"llvm-prefix" usage:"Path to LLVM installation (parent of 'bin' folder)"`
	QemuPrefix      string   `long:"qemu-prefix" usage:"Path to QEMU installation (parent of 'bin' folder)"`
	TcPrefix        string   `long:"tc-prefix" usage:"Path to toolchain installation (parent of 'bin' folder)"`
	UseCcache       bool     `long:"use-ccache" usage:"Use ccache for building"`
	SaveObjects     bool     `long:"save-objects" usage:"Save object files instead of removing the build folder"`
	OnlyTestBoot    bool     `long:"boot-only" usage:"Only build and test what is needed for boot testing"`
	LogLevel        string   `long:"log-level" usage:"Set the logging verbosity" default:"info"`
}

// New builds the root cobra command.
func New() *cobra.Command {
	cmd, err := cmdfactory.New(&Lkt{}, cobra.Command{
		Use:   "lkt [FLAGS]",
		Short: "Build and boot test Linux kernels with LLVM",
		Long: heredoc.Doc(`
			lkt cross compiles the Linux kernel with clang for a matrix of
			architectures and configurations, applies workarounds for known
			toolchain and kernel incompatibilities, boot tests the resulting
			images in QEMU via boot-utils and summarizes the outcome of every
			variant.`),
		Example: heredoc.Doc(`
			# Test every architecture and configuration target
			$ lkt --linux-folder ~/src/linux

			# Restrict testing to arm64 and x86_64 defconfigs
			$ lkt -l ~/src/linux -a arm64,x86_64 -t def

			# Use an LLVM installation outside of PATH
			$ lkt -l ~/src/linux --llvm-prefix /opt/llvm-18`),
	})
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(NewVersion())

	return cmd
}

func (opts *Lkt) Pre(cmd *cobra.Command, _ []string) error {
	if opts.LinuxFolder == "" {
		return cmdfactory.FlagErrorf("--linux-folder is required")
	}

	if _, err := os.Stat(opts.LinuxFolder); err != nil {
		return fmt.Errorf("supplied Linux source folder %q could not be found: %w", opts.LinuxFolder, err)
	}

	level, ok := log.Levels()[opts.LogLevel]
	if !ok {
		return cmdfactory.FlagErrorf("unknown log level: %s", opts.LogLevel)
	}
	log.L.SetLevel(level)
	log.L.SetFormatter(&log.TextFormatter{})

	if len(opts.Architectures) == 0 {
		opts.Architectures = arch.Names()
	}
	for _, name := range opts.Architectures {
		found := false
		for _, supported := range arch.Names() {
			if name == supported {
				found = true
				break
			}
		}
		if !found {
			return cmdfactory.FlagErrorf("unsupported architecture: %s (supported: %s)",
				name, strings.Join(arch.Names(), ", "))
		}
	}

	if len(opts.TargetsToBuild) == 0 {
		opts.TargetsToBuild = supportedTargets
	}
	for _, target := range opts.TargetsToBuild {
		if !set.NewStringSet(supportedTargets...).Contains(target) {
			return cmdfactory.FlagErrorf("unsupported target: %s (supported: %s)",
				target, strings.Join(supportedTargets, ", "))
		}
	}

	if opts.BuildFolder == "" {
		opts.BuildFolder = filepath.Join(opts.LinuxFolder, "build")
	}
	if opts.LogFolder == "" {
		opts.LogFolder = filepath.Join("logs", time.Now().Format("20060102-1504"))
	}

	return nil
}

func (opts *Lkt) Run(ctx context.Context, _ []string) error {
	for _, prefix := range []string{opts.BinutilsPrefix, opts.LLVMPrefix, opts.QemuPrefix, opts.TcPrefix} {
		if err := toolchain.AddToPath(prefix); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(opts.LogFolder, 0o775); err != nil {
		return err
	}

	folders := runner.Folders{
		BootUtils: opts.BootUtilsFolder,
		Build:     opts.BuildFolder,
		Configs:   opts.ConfigsFolder,
		Log:       opts.LogFolder,
		Source:    opts.LinuxFolder,
	}

	lsm, err := source.New(ctx, opts.LinuxFolder)
	if err != nil {
		return err
	}

	llvmVersion, err := toolchain.ClangVersion(ctx)
	if err != nil {
		return err
	}

	rep := report.New(folders, lsm)
	if err := rep.ShowEnvInfo(ctx); err != nil {
		return err
	}

	if err := bootutils.Ensure(ctx, opts.BootUtilsFolder); err != nil {
		return err
	}

	makeVars := map[string]string{}
	if opts.UseCcache {
		if toolchain.HaveBinary("ccache") {
			makeVars["CC"] = "ccache clang"
			makeVars["HOSTCC"] = "ccache clang"
		} else {
			log.G(ctx).Warn("ccache requested but not found in PATH")
		}
	}
	if toolchain.HaveBinary("pbzip2") {
		makeVars["KBZIP2"] = "pbzip2"
	}
	if toolchain.HaveBinary("pigz") {
		makeVars["KGZIP"] = "pigz"
	}

	input := &arch.Input{
		Folders:      folders,
		LSM:          lsm,
		LLVMVersion:  llvmVersion,
		MakeVars:     makeVars,
		Targets:      set.NewStringSet(opts.TargetsToBuild...),
		OnlyTestBoot: opts.OnlyTestBoot,
		SaveObjects:  opts.SaveObjects,
	}

	var results []*runner.Result
	for _, name := range opts.Architectures {
		archResults, err := arch.Run(ctx, name, input)
		if err != nil {
			return fmt.Errorf("could not test %s: %w", name, err)
		}

		results = append(results, archResults...)
	}

	return rep.Generate(ctx, results)
}
