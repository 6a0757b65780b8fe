// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package runner builds and boot-tests individual kernel
// configurations.  A Runner represents one configuration of one
// architecture: it stages the requested configuration in an out-of-tree
// build folder, invokes make, verifies the requested options survived
// olddefconfig and finally boots the resulting image under QEMU via
// boot-utils.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lkt.sh/exec"
	"lkt.sh/kconfig"
	"lkt.sh/log"
	"lkt.sh/make"
	"lkt.sh/source"
	"lkt.sh/toolchain"
)

const (
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// Folders holds every location a test run touches.
type Folders struct {
	// BootUtils is a checkout of ClangBuiltLinux/boot-utils.
	BootUtils string

	// Build is the out-of-tree build folder (the value of O=).
	Build string

	// Configs holds bundled out-of-tree distribution configurations.
	Configs string

	// Log is where build and boot logs are written.
	Log string

	// Source is the root of the Linux source tree.
	Source string
}

// Result describes the outcome of building and optionally booting one
// configuration.
type Result struct {
	Name     string
	Build    string
	Boot     string
	Reason   string
	Duration string
	Log      string
}

// Runner builds a single kernel configuration and optionally boots it.
type Runner struct {
	// Bootable indicates the resulting image should be booted in QEMU.
	Bootable bool

	// BootArch is the architecture value passed to boot-qemu.py.
	BootArch string

	// Configs holds the configuration targets for this build: a
	// defconfig-style make target first, followed by any config
	// fragment files and CONFIG_FOO=val options.  When DistroConfig is
	// set it instead holds only the extra options.
	Configs []string

	// DistroConfig is the path to an out-of-tree distribution
	// configuration which seeds .config instead of a defconfig target.
	DistroConfig string

	Folders Folders

	// ImageTarget is the architecture's boot image make target, built
	// instead of 'all' when OnlyTestBoot is set.
	ImageTarget string

	// LSM inspects the source tree for version, commit and config
	// facts.
	LSM *source.Manager

	MakeTargets []string
	MakeVars    map[string]string

	// OnlyTestBoot limits the build to the image needed for boot
	// testing.
	OnlyTestBoot bool

	// OverrideMakeVars take precedence over MakeVars, allowing callers
	// to redirect tools such as KCFLAGS or CROSS_COMPILE per run.
	OverrideMakeVars map[string]string

	// QemuArch is the suffix of the qemu-system-<arch> binary needed to
	// boot the result.
	QemuArch string

	// SkippedBoot records a preset boot result for configurations whose
	// boot testing was disabled up front for a known reason.
	SkippedBoot string

	result    Result
	dotConfig string
}

// New instantiates a runner with the variables every LLVM kernel build
// shares.
func New() *Runner {
	return &Runner{
		MakeVars: map[string]string{
			"HOSTLDFLAGS": "-fuse-ld=lld",
			"LLVM":        "1",
			"LLVM_IAS":    "1",
			"LOCALVERSION": "-cbl",
		},
		OverrideMakeVars: map[string]string{},
	}
}

// Run builds the configured kernel and boots it when requested.  Build
// and boot failures are reported through the result, an error return
// indicates the runner itself was misconfigured.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.Folders.Source == "" {
		return nil, errors.New("no source location set")
	}
	if r.Folders.Build == "" {
		return nil, errors.New("no build folder set")
	}
	if len(r.Configs) == 0 && r.DistroConfig == "" {
		return nil, errors.New("no configuration to build")
	}
	if r.LSM == nil {
		return nil, errors.New("no source manager set")
	}

	r.dotConfig = filepath.Join(r.Folders.Build, ".config")

	if slices.Contains(r.Configs, "allmodconfig") && r.LSM.HasConfig("CONFIG_WERROR") {
		r.Configs = append(r.Configs, "CONFIG_WERROR=n")
	}

	if slices.Contains(r.Configs, "CONFIG_WERROR=n") {
		// Subsystems carry their own -Werror switches.  They are added
		// here rather than by the callers so that they are visible in
		// the build logs, but only when the tree actually has them.
		for _, sym := range []string{"DRM_WERROR"} {
			if full := "CONFIG_" + sym; r.LSM.HasConfig(full) {
				r.Configs = append(r.Configs, full+"=n")
			}
		}
	}

	// Distribution configurations may need options disabled to build at
	// all.  Those adjustments should be visible in the run name and
	// logs.
	var shown []string
	if r.DistroConfig != "" {
		if err := r.initialDistroPrep(); err != nil {
			return nil, err
		}
		shown = append([]string{distroName(r.DistroConfig) + " config"}, r.Configs...)
	} else {
		shown = r.Configs
	}

	r.result.Name = fmt.Sprintf("%s %s", r.MakeVars["ARCH"], strings.Join(shown, " + "))
	fmt.Printf("\nBuilding %s...\n", r.result.Name)

	if err := os.MkdirAll(r.Folders.Log, 0o755); err != nil {
		return nil, err
	}
	r.result.Log = filepath.Join(r.Folders.Log, logName(r.result.Name)+".log")

	if err := r.buildKernel(ctx); err != nil {
		return nil, err
	}

	if err := r.bootKernel(ctx); err != nil {
		return nil, err
	}

	return &r.result, nil
}

func (r *Runner) buildKernel(ctx context.Context) error {
	vars := map[string]string{}
	for key, val := range r.MakeVars {
		vars[key] = val
	}
	for key, val := range r.OverrideMakeVars {
		vars[key] = val
	}

	// Stale artifacts from a previous configuration would taint this
	// one.
	if err := os.RemoveAll(r.Folders.Build); err != nil {
		return err
	}

	// Keep O relative to the source folder when possible so that build
	// logs are reproducible across machines.
	vars["O"] = r.Folders.Build
	if rel, err := filepath.Rel(r.Folders.Source, r.Folders.Build); err == nil && !strings.HasPrefix(rel, "..") {
		vars["O"] = rel
	}

	// Trees with scripts/Makefile.clang default LLVM_IAS to on.  Drop
	// the variable entirely when it matches the tree's default so the
	// logs only show deviations.
	iasDefaultOn := strings.Contains(r.LSM.ReadFile("scripts/Makefile.clang"), "ifeq ($(LLVM_IAS),0)")
	if (iasDefaultOn && vars["LLVM_IAS"] == "1") || (!iasDefaultOn && vars["LLVM_IAS"] == "0") {
		delete(vars, "LLVM_IAS")
	}

	var fragments []string
	var options []string

	extras := r.Configs
	baseConfig := ""
	if r.DistroConfig == "" {
		baseConfig = r.Configs[0]
		extras = r.Configs[1:]
	}

	for _, item := range extras {
		switch {
		case kconfig.IsFragment(item):
			fragments = append(fragments, item)
		case kconfig.IsOption(item):
			options = append(options, item)
		default:
			return fmt.Errorf("cannot handle configuration item '%s'", item)
		}
	}

	extraConfigs := slices.Clone(options)
	needOlddefconfig := false

	var cmdsToLog []string
	var finalTargets []string

	if r.DistroConfig != "" {
		if len(fragments) > 0 {
			return errors.New("config fragments are not supported with out of tree configurations")
		}

		if err := os.MkdirAll(r.Folders.Build, 0o755); err != nil {
			return err
		}

		cmdsToLog = append(cmdsToLog, fmt.Sprintf("cp %s %s", r.DistroConfig, r.dotConfig))
		if err := copyFile(r.DistroConfig, r.dotConfig); err != nil {
			return err
		}

		adjustments, err := r.distroAdjustments(ctx)
		if err != nil {
			return err
		}
		extraConfigs = append(extraConfigs, adjustments...)

		needOlddefconfig = true
	} else if len(extraConfigs) > 0 {
		// Generate .config up front so merge_config.sh has a base to
		// merge the requested options into.
		var configureOut bytes.Buffer
		configure, err := r.newMake(vars, []exec.ExecOption{
			exec.WithStdout(&configureOut),
		}, append([]string{baseConfig}, fragments...)...)
		if err != nil {
			return err
		}

		cmdsToLog = append(cmdsToLog, configure.Cmdline())
		if err := configure.Execute(ctx); err != nil {
			fmt.Print(configureOut.String())
			return err
		}
	} else {
		finalTargets = append(finalTargets, baseConfig)
		finalTargets = append(finalTargets, fragments...)
	}

	if len(extraConfigs) > 0 {
		// Kconfig warns when choice selections are overridden, so
		// disable the default choice whenever an alternative is
		// requested.
		if slices.Contains(extraConfigs, "CONFIG_LTO_CLANG_THIN=y") {
			extraConfigs = append(extraConfigs, "CONFIG_LTO_NONE=n")
		}
		if slices.Contains(extraConfigs, "CONFIG_CPU_BIG_ENDIAN=y") {
			extraConfigs = append(extraConfigs, "CONFIG_CPU_LITTLE_ENDIAN=n")
		}
		if slices.Contains(extraConfigs, "CONFIG_CPU_LITTLE_ENDIAN=y") {
			extraConfigs = append(extraConfigs, "CONFIG_CPU_BIG_ENDIAN=n")
		}

		fragment := string(kconfig.Fragment(extraConfigs))

		tmp, err := os.CreateTemp(r.Folders.Build, "")
		if err != nil {
			return err
		}
		if _, err := tmp.WriteString(fragment); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		cmdsToLog = append(cmdsToLog, fmt.Sprintf("cat %s\n%s", tmp.Name(), strings.TrimSpace(fragment)))

		mergeConfig, err := exec.NewExecutable(
			filepath.Join(r.Folders.Source, "scripts/kconfig/merge_config.sh"), nil,
			"-m", "-O", r.Folders.Build, r.dotConfig, tmp.Name(),
		)
		if err != nil {
			return err
		}

		var mergeOut bytes.Buffer
		merge, err := exec.NewProcessFromExecutable(mergeConfig,
			exec.WithWorkdir(r.Folders.Build),
			exec.WithStdout(&mergeOut),
		)
		if err != nil {
			return err
		}

		cmdsToLog = append(cmdsToLog, merge.Cmdline())
		if err := merge.StartAndWait(ctx); err != nil {
			fmt.Print(mergeOut.String())
			return err
		}

		needOlddefconfig = true
	}

	if needOlddefconfig {
		finalTargets = append(finalTargets, "olddefconfig")
	}
	if r.OnlyTestBoot {
		finalTargets = append(finalTargets, r.ImageTarget)
	} else {
		finalTargets = append(finalTargets, "all")
	}
	finalTargets = append(finalTargets, r.MakeTargets...)

	logFile, err := os.Create(r.result.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()

	for _, cmd := range cmdsToLog {
		fmt.Fprintf(logFile, "%s\n\n", cmd)
	}

	build, err := r.newMake(vars, []exec.ExecOption{
		exec.WithStdout(io.MultiWriter(os.Stdout, logFile)),
	}, finalTargets...)
	if err != nil {
		return err
	}

	fmt.Printf("\n$ %s\n", build.Cmdline())

	start := time.Now()
	buildErr := build.Execute(ctx)

	if needOlddefconfig {
		if err := r.verifyConfigs(ctx, options, logFile); err != nil {
			return err
		}
	}

	if buildErr == nil {
		r.result.Build = StatusSuccessful
	} else {
		r.result.Build = StatusFailed
	}

	r.result.Duration = FormatDuration(time.Since(start))
	timeStr := fmt.Sprintf("\nReal\t%s\n", r.result.Duration)
	fmt.Print(timeStr)
	fmt.Fprint(logFile, timeStr)

	return nil
}

// verifyConfigs checks that every requested option survived
// olddefconfig, as Kconfig silently drops selections whose dependencies
// are not met.
func (r *Runner) verifyConfigs(ctx context.Context, requested []string, logFile io.Writer) error {
	dotcfg, err := kconfig.ParseConfig(r.dotConfig)
	if err != nil {
		return err
	}

	var missing []string
	for _, item := range requested {
		name, val, _ := strings.Cut(item, "=")

		value := dotcfg.Value(name)
		if val == "n" {
			// 'CONFIG_FOO=n' lands in the final config as
			// '# CONFIG_FOO is not set', or disappears entirely when
			// the option is not visible.
			if value == kconfig.No || value == "" {
				continue
			}
		} else if strings.Trim(value, `"`) == strings.Trim(val, `"`) {
			// Values are stored verbatim, so quoted strings keep their
			// quotes on both sides of the comparison.
			continue
		}

		missing = append(missing, item)
	}

	if len(missing) > 0 {
		warning := fmt.Sprintf("Missing requested configurations after olddefconfig: %s", strings.Join(missing, ", "))
		log.G(ctx).Warn(warning)
		fmt.Fprintf(logFile, "\nWARNING: %s\n", warning)
	}

	return nil
}

func (r *Runner) bootKernel(ctx context.Context) error {
	if !r.Bootable {
		if r.SkippedBoot != "" {
			r.result.Boot = r.SkippedBoot
		}
		return nil
	}

	if r.result.Build == StatusFailed {
		r.result.Boot = StatusSkipped
		return nil
	}

	if r.BootArch == "" {
		return errors.New("no boot-utils architecture set")
	}
	if r.QemuArch == "" {
		return errors.New("no QEMU architecture set")
	}

	qemuBin := "qemu-system-" + r.QemuArch
	if !toolchain.HaveBinary(qemuBin) {
		r.result.Boot = "skipped due to missing " + qemuBin
		return nil
	}

	bootQemu := filepath.Join(r.Folders.BootUtils, "boot-qemu.py")
	if _, err := os.Stat(bootQemu); err != nil {
		return fmt.Errorf("boot-qemu.py could not be found: %w", err)
	}

	args := []string{"-a", r.BootArch, "-k", r.Folders.Build}

	if ghJSON := filepath.Join(r.Folders.Log, ".boot-utils.json"); fileExists(ghJSON) {
		args = append(args, "--gh-json-file", ghJSON)
	}

	// i386 may not have highmem automatically enabled under KVM and it
	// does not need more memory because it can only have 8 CPUs.
	if r.usingKVM(ctx, bootQemu) && r.BootArch != "x86" {
		args = append(args, "-m", "2G")
	}

	executable, err := exec.NewExecutable(bootQemu, nil, args...)
	if err != nil {
		return err
	}

	var output strings.Builder
	process, err := exec.NewProcessFromExecutable(executable, exec.WithStdout(&output))
	if err != nil {
		return err
	}

	fmt.Printf("\n$ %s\n", process.Cmdline())

	bootErr := process.StartAndWait(ctx)

	logFile, err := os.OpenFile(r.result.Log, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if _, err := logFile.WriteString(output.String()); err != nil {
		return err
	}

	if bootErr == nil {
		r.result.Boot = StatusSuccessful
	} else {
		r.result.Boot = StatusFailed
		fmt.Print(output.String())
	}

	return nil
}

// usingKVM mirrors the acceleration heuristics of boot-qemu.py so that
// memory sizing matches what the boot will actually use.
func (r *Runner) usingKVM(ctx context.Context, bootQemu string) bool {
	kvmAccess := unix.Access("/dev/kvm", unix.R_OK|unix.W_OK) == nil

	switch runtime.GOARCH {
	case "arm64":
		if r.BootArch == "arm32_v7" {
			el132 := filepath.Join(filepath.Dir(bootQemu), "utils/aarch64_32_bit_el1_supported")
			return kvmAccess && commandSucceeds(ctx, el132)
		}

		return (r.BootArch == "arm64" || r.BootArch == "arm64be") && kvmAccess
	case "amd64":
		return (r.BootArch == "x86" || r.BootArch == "x86_64") && kvmAccess
	}

	return false
}

func (r *Runner) newMake(vars map[string]string, eopts []exec.ExecOption, targets ...string) (*make.Make, error) {
	return make.New(
		make.WithSilent(true),
		make.WithKeepGoing(true),
		make.WithJobs(runtime.NumCPU()),
		make.WithDirectory(r.Folders.Source),
		make.WithVars(vars),
		make.WithTarget(targets...),
		make.WithExecOptions(eopts...),
	)
}
