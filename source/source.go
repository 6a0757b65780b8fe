// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package source inspects a Linux kernel source tree: it derives the
// kernel version, detects the presence of upstream commits and Kconfig
// symbols that gate build workarounds, and exposes the minimum tool
// versions the tree demands.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"lkt.sh/exec"
	"lkt.sh/internal/set"
	"lkt.sh/make"
)

// commitProbe detects an upstream commit by matching a pattern against
// one file of the tree.
type commitProbe struct {
	id      string
	pattern *regexp.Regexp
	file    string
}

// configProbe detects whether a Kconfig symbol is defined in the tree.
type configProbe struct {
	name string
	file string
}

var commitProbes = []commitProbe{
	// powerpc: Add "-z notext" flag to disable diagnostic
	{"0355785313e21", regexp.MustCompile(`LDFLAGS_vmlinux-\$\(CONFIG_RELOCATABLE\) \+= -z notext`), "arch/powerpc/Makefile"},
	// powerpc/pmac32: enable serial options by default in defconfig
	{"0b5e06e9cb156", regexp.MustCompile(`CONFIG_SERIAL_PMACZILOG_CONSOLE=y`), "arch/powerpc/configs/pmac32_defconfig"},
	// powerpc/64: Make VDSO32 track COMPAT on 64-bit
	{"231b232df8f67", regexp.MustCompile(`config VDSO32\n\tdef_bool y\n\tdepends on PPC32 \|\| COMPAT`), "arch/powerpc/platforms/Kconfig.cputype"},
	// powerpc/44x: Fix build failure with GCC 12 (unrecognized opcode: `wrteei')
	{"2255411d1d0f0", regexp.MustCompile(`config POWERPC_CPU\n\tbool "Generic 32 bits powerpc"\n\tdepends on PPC_BOOK3S_32`), "arch/powerpc/platforms/Kconfig.cputype"},
	// lib/xor: make xor prototypes more friendly to compiler vectorization
	{"297565aa22cfa", regexp.MustCompile(`__restrict`), "arch/powerpc/lib/xor_vmx.c"},
	// powerpc/irq: Inline call_do_irq() and call_do_softirq()
	{"48cf12d88969b", regexp.MustCompile(`static __always_inline void call_do_softirq\(const void \*sp\)`), "arch/powerpc/kernel/irq.c"},
	// KVM: PPC: Book3S HV: Workaround high stack usage with clang
	{"51696f39cbee5", regexp.MustCompile(`noinline_for_stack void byteswap_pt_regs`), "arch/powerpc/kvm/book3s_hv_nested.c"},
	// x86, lto: Enable Clang LTO for 32-bit as well
	{"583bfd484bcc8", regexp.MustCompile(`select ARCH_SUPPORTS_LTO_CLANG_THIN\n`), "arch/x86/Kconfig"},
	// powerpc: Kconfig: disable CONFIG_COMPAT for clang < 12
	{"6fcb574125e67", regexp.MustCompile(`config COMPAT\n\tbool "[a-zA-Z0-9 ]+"\n\tdepends on PPC64\n\tdepends on !CC_IS_CLANG`), "arch/powerpc/Kconfig"},
	// Hexagon: fix build errors
	{"788dcee0306e1", regexp.MustCompile(`KBUILD_CFLAGS \+= -mlong-calls`), "arch/hexagon/Makefile"},
	// s390: always build relocatable kernel
	{"80ddf5ce1c929", regexp.MustCompile(`config RELOCATABLE\n\tdef_bool y`), "arch/s390/Kconfig"},
	// RDMA/cma: Distinguish between sockaddr_in and sockaddr_in6 by size
	{"876e480da2f74", regexp.MustCompile(`__builtin_object_size\(sa, 0\) >= sizeof\(struct sockaddr_in`), "drivers/infiniband/core/cma.c"},
	// cfi: Switch to -fsanitize=kcfi
	{"89245600941e4", regexp.MustCompile(`-fsanitize=kcfi`), "Makefile"},
	// RDMA/core: Add a netevent notifier to cma
	{"925d046e7e52", regexp.MustCompile(`static void cma_netevent_work_handler`), "drivers/infiniband/core/cma.c"},
	// ARM: 9122/1: select HAVE_FUTEX_CMPXCHG
	{"9d417cbe36eee", regexp.MustCompile(`select HAVE_FUTEX_CMPXCHG if FUTEX`), "arch/arm/Kconfig"},
	// x86/Kconfig: Do not allow CONFIG_X86_X32_ABI=y with llvm-objcopy
	{"aaeed6ecc1253", regexp.MustCompile(`https://github\.com/ClangBuiltLinux/linux/issues/514`), "arch/x86/Kconfig"},
	// x86/build: Treat R_386_PLT32 relocation as R_386_PC32
	{"bb73d07148c40", regexp.MustCompile(`R_386_PLT32:`), "arch/x86/tools/relocs.c"},
	// MIPS: Malta: Enable BLK_DEV_INITRD
	{"c47c7ab9b5363", regexp.MustCompile(`CONFIG_BLK_DEV_INITRD=y`), "arch/mips/configs/malta_defconfig"},
	// x86/boot: Add $(CLANG_FLAGS) to compressed KBUILD_CFLAGS
	{"d5cbd80e302df", regexp.MustCompile(`CLANG_FLAGS`), "arch/x86/boot/compressed/Makefile"},
	// arm64: Kconfig: add a choice for endianness
	{"d8e85e144bbe1", regexp.MustCompile(`prompt "Endianness"`), "arch/arm64/Kconfig"},
	// riscv: Use -mno-relax when using lld linker
	{"ec3a5cb61146c", regexp.MustCompile(`KBUILD_CFLAGS \+= -mno-relax`), "arch/riscv/Makefile"},
	// riscv: set default pm_power_off to NULL
	{"f2928e224d85e", regexp.MustCompile(`void \(\*pm_power_off\)\(void\) = NULL;`), "arch/riscv/kernel/reset.c"},
	// hexagon: export raw I/O routines for modules
	{"ffb92ce826fd8", regexp.MustCompile(`EXPORT_SYMBOL\(__raw_readsw\)`), "arch/hexagon/lib/io.c"},
}

// negativeCommitProbes detect commits by the absence of the code they
// removed.
var negativeCommitProbes = []commitProbe{
	// powerpc/pmac/smp: Avoid unused-variable warnings
	{"9451c79bc39e", regexp.MustCompile(`(?m)^volatile static long int core99_l2_cache;$`), "arch/powerpc/platforms/powermac/smp.c"},
	// s390/bitops: remove small optimization to fix clang build
	{"efe5e0fea4b24", regexp.MustCompile(`"(o|n|x)i\t%0,%b1\\n"`), "arch/s390/include/asm/bitops.h"},
}

// existenceCommitProbes detect commits that introduced a whole file.
var existenceCommitProbes = []struct {
	id   string
	file string
}{
	// Makefile: move initial clang flag handling into scripts/Makefile.clang
	{"6f5b41a2f5a63", "scripts/Makefile.clang"},
	// MIPS: VDSO: Move disabling the VDSO logic to Kconfig
	{"e91946d6d93ef", "arch/mips/vdso/Kconfig"},
	// Hexagon: add target builtins to kernel
	{"f1f99adf05f21", "arch/hexagon/lib/divsi3.S"},
}

var configProbes = []configProbe{
	{"CONFIG_CFI_CLANG", "arch/Kconfig"},
	{"CONFIG_HAVE_FUTEX_CMPXCHG", "init/Kconfig"},
	{"CONFIG_LTO_CLANG_THIN", "arch/Kconfig"},
	{"CONFIG_MODULE_REL_CRCS", "init/Kconfig"},
	{"CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2", "arch/powerpc/Kconfig"},
	{"CONFIG_SHADOW_CALL_STACK", "arch/Kconfig"},
	{"CONFIG_WERROR", "init/Kconfig"},
}

// Manager inspects a single Linux source tree.  The tree is probed once
// at construction and all queries afterwards are in-memory lookups.
type Manager struct {
	dir     string
	version *semver.Version
	commits *set.StringSet
	configs *set.StringSet
}

// New probes the Linux source tree at dir.  The tree must be
// clean: out-of-tree builds leave the source untouched and a stale
// in-tree configuration would taint every build.
func New(ctx context.Context, dir string) (*Manager, error) {
	if _, err := os.Stat(filepath.Join(dir, "Makefile")); err != nil {
		return nil, fmt.Errorf("%s does not look like a Linux kernel tree", dir)
	}

	if err := checkClean(dir); err != nil {
		return nil, err
	}

	m := &Manager{
		dir:     dir,
		commits: set.NewStringSet(),
		configs: set.NewStringSet(),
	}

	var err error
	if m.version, err = kernelVersion(ctx, dir); err != nil {
		return nil, err
	}

	for _, probe := range commitProbes {
		if probe.pattern.MatchString(m.ReadFile(probe.file)) {
			m.commits.Add(probe.id)
		}
	}

	for _, probe := range negativeCommitProbes {
		if !probe.pattern.MatchString(m.ReadFile(probe.file)) {
			m.commits.Add(probe.id)
		}
	}

	for _, probe := range existenceCommitProbes {
		if m.FileExists(probe.file) {
			m.commits.Add(probe.id)
		}
	}

	// Makefile: Add loongarch target flag for Clang compilation
	if m.commits.Contains("6f5b41a2f5a63") &&
		strings.Contains(m.ReadFile("scripts/Makefile.clang"), "loongarch64-linux-gnusf") {
		m.commits.Add("65eea6b44a5dd")
	}

	for _, probe := range configProbes {
		definition := strings.Replace(probe.name, "CONFIG_", "config ", 1)
		if strings.Contains(m.ReadFile(probe.file), definition) {
			m.configs.Add(probe.name)
		}
	}

	// bpf: Add kernel module with user mode driver that populates bpffs.
	if m.FileExists("kernel/bpf/preload/Kconfig") {
		m.configs.Add("CONFIG_BPF_PRELOAD")
	}

	// powerpc: Allow CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2 with ld.lld 15+
	if m.configs.Contains("CONFIG_PPC64_BIG_ENDIAN_ELF_ABI_V2") {
		elfv2 := regexp.MustCompile(`depends on CC_HAS_ELFV2\n\tdepends on LD_VERSION >= 22400 \|\| LLD_VERSION >= 150000`)
		if elfv2.MatchString(m.ReadFile("arch/powerpc/Kconfig")) {
			m.commits.Add("a11334d8327b")
		}
	}

	return m, nil
}

// checkClean performs the same check the kernel's Makefile does before
// an out-of-tree build.
func checkClean(dir string) error {
	if info, err := os.Stat(filepath.Join(dir, ".config")); err == nil && info.Mode().IsRegular() {
		return fmt.Errorf("supplied Linux source ('%s') is not clean", dir)
	}

	if info, err := os.Stat(filepath.Join(dir, "include/config")); err == nil && info.IsDir() {
		return fmt.Errorf("supplied Linux source ('%s') is not clean", dir)
	}

	if generated, _ := filepath.Glob(filepath.Join(dir, "arch/*/include/generated")); len(generated) > 0 {
		return fmt.Errorf("supplied Linux source ('%s') is not clean", dir)
	}

	return nil
}

// kernelVersion asks the tree for its version via the kernelversion
// target and normalizes it, dropping any -rcN style suffix.
func kernelVersion(ctx context.Context, dir string) (*semver.Version, error) {
	kmake, err := make.New(
		make.WithDirectory(dir),
		make.WithSilent(true),
		make.WithTarget("kernelversion"),
	)
	if err != nil {
		return nil, err
	}

	output, err := kmake.Output(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not query kernel version: %w", err)
	}

	return parseKernelVersion(output)
}

func parseKernelVersion(output string) (*semver.Version, error) {
	release, _, _ := strings.Cut(strings.TrimSpace(output), "-")

	parts := [3]uint64{}
	for i, item := range strings.SplitN(release, ".", 3) {
		number, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed kernel version '%s': %w", output, err)
		}
		parts[i] = number
	}

	return semver.New(parts[0], parts[1], parts[2], "", ""), nil
}

// Dir returns the root of the inspected source tree.
func (m *Manager) Dir() string {
	return m.dir
}

// Version returns the tree's base kernel version.
func (m *Manager) Version() *semver.Version {
	return m.version
}

// HasCommit reports whether the tree contains the upstream commit with
// the provided abbreviated hash.
func (m *Manager) HasCommit(id string) bool {
	return m.commits.Contains(id)
}

// HasConfig reports whether the tree defines the provided Kconfig
// symbol, including the CONFIG_ prefix.
func (m *Manager) HasConfig(name string) bool {
	return m.configs.Contains(name)
}

// ReadFile returns the contents of a file relative to the tree root,
// or an empty string if it cannot be read.
func (m *Manager) ReadFile(rel string) string {
	contents, err := os.ReadFile(filepath.Join(m.dir, rel))
	if err != nil {
		return ""
	}

	return string(contents)
}

// FileExists reports whether a path relative to the tree root exists.
func (m *Manager) FileExists(rel string) bool {
	_, err := os.Stat(filepath.Join(m.dir, rel))
	return err == nil
}

// MinToolVersion returns the minimum version of tool the tree demands
// via scripts/min-tool-version.sh, optionally scoped to the provided
// SRCARCH.  Trees which predate the script have no codified minimums
// and yield the zero version.
func (m *Manager) MinToolVersion(ctx context.Context, tool, srcarch string) (*semver.Version, error) {
	script := filepath.Join(m.dir, "scripts/min-tool-version.sh")
	if _, err := os.Stat(script); err != nil {
		return semver.New(0, 0, 0, "", ""), nil
	}

	executable, err := exec.NewExecutable(script, nil, tool)
	if err != nil {
		return nil, err
	}

	eopts := []exec.ExecOption{}
	if srcarch != "" {
		eopts = append(eopts, exec.WithEnvKey("SRCARCH", srcarch))
	}

	output, err := exec.Output(ctx, executable, eopts...)
	if err != nil {
		return nil, fmt.Errorf("could not query minimum %s version: %w", tool, err)
	}

	return semver.NewVersion(strings.TrimSpace(output))
}

// KernelBanner returns the "Linux <release>" string the tree would
// print at boot, local version included.  It temporarily stages an
// auto.conf enabling CONFIG_LOCALVERSION_AUTO so that trees built from
// git describe themselves fully.
func (m *Manager) KernelBanner(ctx context.Context) (string, error) {
	includeConfig := filepath.Join(m.dir, "include/config")
	if err := os.MkdirAll(includeConfig, 0o755); err != nil {
		return "", err
	}

	defer os.RemoveAll(includeConfig)

	autoConf := filepath.Join(includeConfig, "auto.conf")
	if err := os.WriteFile(autoConf, []byte("CONFIG_LOCALVERSION_AUTO=y\n"), 0o644); err != nil {
		return "", err
	}

	setlocalversion := m.ReadFile("scripts/setlocalversion")

	// Newer trees compute the local version entirely within make.  On
	// older ones scripts/setlocalversion has to be invoked separately.
	if strings.Contains(setlocalversion, "KERNELVERSION is not set") {
		release, err := m.makeOutput(ctx, "kernelrelease")
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("Linux %s", release), nil
	}

	version, err := m.makeOutput(ctx, "kernelversion")
	if err != nil {
		return "", err
	}

	executable, err := exec.NewExecutable(filepath.Join(m.dir, "scripts/setlocalversion"), nil)
	if err != nil {
		return "", err
	}

	localversion, err := exec.Output(ctx, executable, exec.WithWorkdir(m.dir))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Linux %s%s", version, strings.TrimSpace(localversion)), nil
}

func (m *Manager) makeOutput(ctx context.Context, target string) (string, error) {
	kmake, err := make.New(
		make.WithDirectory(m.dir),
		make.WithSilent(true),
		make.WithTarget(target),
	)
	if err != nil {
		return "", err
	}

	output, err := kmake.Output(ctx)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(output), nil
}
