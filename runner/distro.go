// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"lkt.sh/toolchain"
)

// compatChange records a configuration symbol whose tristate support
// differs between the kernel the distribution configured and the kernel
// under test, along with the Kconfig file that defines it.
type compatChange struct {
	sym  string
	file string
}

// mtkCommonClkConfigs lists the Mediatek common clock drivers that were
// converted to tristate over time, keyed by SoC revision.
var mtkCommonClkConfigs = map[string][]string{
	// https://git.kernel.org/linus/650fcdf9181e4551cd22d651a8e637c800045c97
	"MT2712": {"", "_BDPSYS", "_IMGSYS", "_JPGDECSYS", "_MFGCFG", "_MMSYS", "_VDECSYS", "_VENCSYS"},
	// https://git.kernel.org/linus/cfe2c864f0cc80ef292c0b01bb7b83b4cc393516
	"MT6765": {
		"_AUDIOSYS", "_CAMSYS", "_GCESYS", "_MMSYS", "_IMGSYS", "_VCODECSYS", "_MFGSYS",
		"_MIPI0ASYS", "_MIPI0BSYS", "_MIPI1ASYS", "_MIPI1BSYS", "_MIPI2ASYS", "_MIPI2BSYS",
	},
	// https://git.kernel.org/linus/f09b9460a5e448dac8fb4f645828c0668144f9e6
	"MT6779": {"", "_AUDSYS", "_CAMSYS", "_IMGSYS", "_IPESYS", "_MFGCFG", "_MMSYS", "_VDECSYS", "_VENCSYS"},
	// https://git.kernel.org/linus/6f0d2e07f2dbcafdc4018839bc99971dd1a7232d
	"MT6797": {"_MMSYS", "_IMGSYS", "_VDECSYS", "_VENCSYS"},
	// https://git.kernel.org/linus/c8f0ef997329728a136d07967b7a97cba3f07f7b
	"MT7622": {"", "_ETHSYS", "_HIFSYS", "_AUDSYS"},
	// https://git.kernel.org/linus/a851b17059bc07572224045f05ee556aa4ab0303
	"MT7986": {"", "_ETHSYS"},
	"MT8167": {"", "_AUDSYS", "_IMGSYS", "_MFGCFG", "_MMSYS", "_VDECSYS"},
	// https://git.kernel.org/linus/4c02c9af3cb9449cd176300b288e8addb5083934
	"MT8173": {"", "_MMSYS"},
	// https://git.kernel.org/linus/95ffe65437b239db3f5a570b31cd79629c851743
	"MT8183": {
		"", "_AUDIOSYS", "_CAMSYS", "_IMGSYS", "_IPU_CORE0", "_IPU_CORE1",
		"_IPU_ADL", "_IPU_CONN", "_MFGCFG", "_MMSYS", "_VDECSYS", "_VENCSYS",
	},
	// https://git.kernel.org/linus/5baf38e06a570a2a4ed471a996aff6d6ba69cceb
	"MT8186": {""},
	// https://git.kernel.org/linus/9bfa4fb1e0d6de678a79ec5a05fac464edcee91d
	"MT8192": {
		"", "_AUDSYS", "_CAMSYS", "_IMGSYS", "_IMP_IIC_WRAP", "_IPESYS", "_MDPSYS",
		"_MFGCFG", "_MMSYS", "_MSDC", "_SCP_ADSP", "_VDECSYS", "_VENCSYS",
	},
	// https://git.kernel.org/linus/876d4e21aad8b60e155dbc5bbfb8c8e75c4d9f4b
	"MT8516": {"", "_AUDSYS"},
}

// compatChanges enumerates symbols whose module support was added or
// removed upstream, so a distribution's 'm' may have to become 'y' for
// the kernel under test.
func compatChanges() []compatChange {
	changes := []compatChange{
		// CONFIG_ACPI_HED as a module is invalid after https://git.kernel.org/next/linux-next/c/cccf6ee090c8c133072d5d5b52ae25f3bc907a16
		{"ACPI_HED", "drivers/acpi/Kconfig"},
		// CONFIG_ARM_TEGRA124_CPUFREQ as a module is invalid before https://git.kernel.org/linus/0ae93389b6c84fbbc6414a5c78f50d65eea8cf35
		{"ARM_TEGRA124_CPUFREQ", "drivers/cpufreq/Kconfig.arm"},
		// CONFIG_ARM_SCMI_TRANSPORT_OPTEE as a module is invalid before https://git.kernel.org/linus/db9cc5e677783a8a9157804f4a61bb81d83049ac
		{"ARM_SCMI_TRANSPORT_OPTEE", "drivers/firmware/arm_scmi/transports/Kconfig"},
		// CONFIG_BCM7120_L2_IRQ as a module is invalid before https://git.kernel.org/linus/3ac268d5ed2233d4a2db541d8fd744ccc13f46b0
		{"BCM7120_L2_IRQ", "drivers/irqchip/Kconfig"},
		// CONFIG_CHARGER_MANAGER as a module is invalid before https://git.kernel.org/linus/241eaabc3c315cdfea505725a43de848f498527f
		{"CHARGER_MANAGER", "drivers/power/supply/Kconfig"},
		// CONFIG_CHELSIO_IPSEC_INLINE as a module is invalid before https://git.kernel.org/linus/1b77be463929e6d3cefbc929f710305714a89723
		{"CHELSIO_IPSEC_INLINE", "drivers/crypto/chelsio/Kconfig"},
	}

	// Several Mediatek common clock drivers were converted to modules
	// over time.
	for rev, suffixes := range mtkCommonClkConfigs {
		for _, suffix := range suffixes {
			changes = append(changes, compatChange{"COMMON_CLK_" + rev + suffix, "drivers/clk/mediatek/Kconfig"})
		}
	}

	// CONFIG_CORESIGHT (and all of its drivers) as a module is invalid before https://git.kernel.org/linus/8e264c52e1dab8a7c1e036222ef376c8920c3423
	for _, val := range []string{
		"",
		"_LINKS_AND_SINKS",
		"_LINK_AND_SINK_TMC",
		"_CATU",
		"_SINK_TPIU",
		"_SINK_ETBV10",
		"_SOURCE_ETM3X",
		"_SOURCE_ETM4X",
		"_STM",
	} {
		changes = append(changes, compatChange{"CORESIGHT" + val, "drivers/hwtracing/coresight/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_CPUFREQ_DT_PLATDEV as a module is invalid before https://git.kernel.org/linus/3b062a086984d35a3c6d3a1c7841d0aa73aa76af
		compatChange{"CPUFREQ_DT_PLATDEV", "drivers/cpufreq/Kconfig"},
		// CONFIG_CROS_EC_PROTO as a module is invalid before https://git.kernel.org/linus/ccf395bde6aeefac139f4f250287feb139e3355d
		compatChange{"CROS_EC_PROTO", "drivers/platform/chrome/Kconfig"},
	)

	// CONFIG_CRYPTO_ARCH_HAVE_LIB_{CHACHA,CURVE25519,POLY1305} as modules is invalid after https://git.kernel.org/next/linux-next/c/56b8e4bb76226c2ae784192cc1330d09f1c37384
	for _, alg := range []string{"CHACHA", "CURVE25519", "POLY1305"} {
		changes = append(changes, compatChange{"CRYPTO_ARCH_HAVE_LIB_" + alg, "lib/crypto/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_CS89x0_PLATFORM as a module is invalid before https://git.kernel.org/linus/47fd22f2b84765a2f7e3f150282497b902624547
		compatChange{"CS89x0_PLATFORM", "drivers/net/ethernet/cirrus/Kconfig"},
		// CONFIG_DIMLIB as a module is invalid before https://git.kernel.org/linus/0d5044b4e7749099b12da5f2c8618f04bb4fa82f
		compatChange{"DIMLIB", "lib/Kconfig"},
		// CONFIG_DRIVER_PE_KUNIT_TEST as a module is invalid before https://git.kernel.org/linus/98ad1dd06a02096fff6c65703a85b9f3c3de1a7d
		compatChange{"DRIVER_PE_KUNIT_TEST", "drivers/base/test/Kconfig"},
		// CONFIG_DRM_CLIENT_SELECTION as a module is invalid before https://git.kernel.org/linus/dadd28d4142f9ad39eefb7b45ee7518bd4d2459c
		compatChange{"DRM_CLIENT_SELECTION", "drivers/gpu/drm/Kconfig"},
	)

	// CONFIG_DRM_GEM_{CMA,SHMEM}_HELPER as modules is invalid before https://git.kernel.org/linus/4b2b5e142ff499a2bef2b8db0272bbda1088a3fe
	for _, val := range []string{"CMA", "SHMEM"} {
		changes = append(changes, compatChange{"DRM_GEM_" + val + "_HELPER", "drivers/gpu/drm/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_FB_BACKLIGHT as a module is invalid after https://git.kernel.org/linus/8fc38062be3f692ff8816da84fde71972530bcc4
		compatChange{"FB_BACKLIGHT", "drivers/video/fbdev/core/Kconfig"},
		// CONFIG_FSCACHE as a module is invalid after https://git.kernel.org/next/linux-next/c/9896c4f367fcc44213d15fe7210e9305df8063f2
		// While the new configuration location is fs/netfs/Kconfig, whether
		// FSCACHE can be a module is checked in fs/fscache/Kconfig; if that
		// file does not exist, it cannot be 'm' due to the change above.
		compatChange{"FSCACHE", "fs/fscache/Kconfig"},
		// CONFIG_TEST_MISC_MINOR as a module is invalid after https://git.kernel.org/linus/74d8361be3441dff0d3bd00840545288451c77a5
		compatChange{"TEST_MISC_MINOR", "lib/Kconfig.debug"},
	)

	// CONFIG_GPIO_DAVINCI as a module is invalid before https://git.kernel.org/linus/8dab99c9eab3162bfb4326c35579a3388dbf68f2
	// CONFIG_GPIO_MXC as a module is invalid before https://git.kernel.org/linus/12d16b397ce0a999d13762c4c0cae2fb82eb60ee
	// CONFIG_GPIO_PL061 as a module is invalid before https://git.kernel.org/linus/616844408de7f21546c3c2a71ea7f8d364f45e0d
	// CONFIG_GPIO_TPS68470 as a module is invalid before https://git.kernel.org/linus/a1ce76e89907a69713f729ff21db1efa00f3bb47
	for _, val := range []string{"DAVINCI", "MXC", "PL061", "TPS68470"} {
		changes = append(changes, compatChange{"GPIO_" + val, "drivers/gpio/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_HAVE_KVM_IRQ_BYPASS as a module is invalid before https://git.kernel.org/linus/459a35111b0a890172a78d51c01b204e13a34a18
		compatChange{"HAVE_KVM_IRQ_BYPASS", "virt/kvm/Kconfig"},
		// CONFIG_IMX_DSP as a module is invalid before https://git.kernel.org/linus/f52cdcce9197fef9d4a68792dd3b840ad2b77117
		compatChange{"IMX_DSP", "drivers/firmware/imx/Kconfig"},
		// CONFIG_INFINIBAND_HNS_HIP08 as a module is invalid before https://git.kernel.org/linus/8977b561216c7e693d61c6442657e33f134bfeb5
		compatChange{"INFINIBAND_HNS_HIP08", "drivers/infiniband/hw/hns/Kconfig"},
		// CONFIG_KPROBES_SANITY_TEST as a module is invalid before https://git.kernel.org/linus/e44e81c5b90f698025eadceb7eef8661eda117d5
		compatChange{"KPROBES_SANITY_TEST", "lib/Kconfig.debug"},
		// CONFIG_MFD_PALMAS as a module is invalid before https://git.kernel.org/linus/d4b15e447c352ae74b18261bdaf0023fa9a7d1bd
		compatChange{"MFD_PALMAS", "drivers/mfd/Kconfig"},
		// CONFIG_MTK_IOMMU as a module is invalid before https://git.kernel.org/linus/18d8c74ec5987a78bd1e9c1c629dfdd04a151a89
		compatChange{"MTK_IOMMU", "drivers/iommu/Kconfig"},
		// CONFIG_MTK_MMSYS as a module is invalid before https://git.kernel.org/linus/a7596e62dac7318456c1aa9af5bfccf0f8e6ad7e
		compatChange{"MTK_MMSYS", "drivers/soc/mediatek/Kconfig"},
		// CONFIG_MTK_SMI as a module is invalid before https://git.kernel.org/linus/50fc8d9232cdc64b9e9d1b9488452f153de52b69
		compatChange{"MTK_SMI", "drivers/memory/Kconfig"},
		// CONFIG_NET_9P_USBG as a module is invalid before https://git.kernel.org/linus/e0260d530b73ee969ae971d14daa02376dcfc93f
		compatChange{"NET_9P_USBG", "net/9p/Kconfig"},
	)

	// CONFIG_NET_DSA_REALTEK_{MDIO,SMI} as modules is invalid after https://git.kernel.org/netdev/net-next/c/98b75c1c149c653ad11a440636213eb070325158
	for _, val := range []string{"MDIO", "SMI"} {
		changes = append(changes, compatChange{"NET_DSA_REALTEK_" + val, "drivers/net/dsa/realtek/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_NVME_AUTH as a module is invalid before https://git.kernel.org/linus/6affe08aea5f3b630565676e227b41d55a6f009c
		compatChange{"NVME_AUTH", "drivers/nvme/common/Kconfig"},
		// CONFIG_NVMEM_ZYNQMP as a module is invalid before https://git.kernel.org/linus/bcd1fe07def0f070eb5f31594620aaee6f81d31a
		compatChange{"NVMEM_ZYNQMP", "drivers/nvmem/Kconfig"},
	)

	// CONFIG_PCI_DRA7XX{,_HOST,_EP} as modules is invalid before https://git.kernel.org/linus/3b868d150efd3c586762cee4410cfc75f46d2a07
	// CONFIG_PCI_EXYNOS as a module is invalid before https://git.kernel.org/linus/778f7c194b1dac351d345ce723f8747026092949
	// CONFIG_PCI_MESON as a module is invalid before https://git.kernel.org/linus/a98d2187efd9e6d554efb50e3ed3a2983d340fe5
	for _, val := range []string{"DRA7XX", "DRA7XX_EP", "DRA7XX_HOST", "EXYNOS", "MESON"} {
		changes = append(changes, compatChange{"PCI_" + val, "drivers/pci/controller/dwc/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_PCI_MVEBU as a module is invalid before https://git.kernel.org/linus/0746ae1be12177ebda0666eefa82583cbaeeefd6
		compatChange{"PCI_MVEBU", "drivers/pci/controller/Kconfig"},
		// CONFIG_PINCTRL_ROCKCHIP as a module is invalid before https://git.kernel.org/linus/be786ac5a6c4bf4ef3e4c569a045d302c1e60fe6
		compatChange{"PINCTRL_ROCKCHIP", "drivers/pinctrl/Kconfig"},
		// CONFIG_PINCTRL_SPACEMIT_K1 as a module is invalid after https://git.kernel.org/linusw/linux-pinctrl/c/7ff4faba63571c51004280f7eb5d6362b15ec61f
		compatChange{"PINCTRL_SPACEMIT_K1", "drivers/pinctrl/spacemit/Kconfig"},
		// CONFIG_POWER_RESET_SC27XX as a module is invalid before https://git.kernel.org/linus/f78c55e3b4806974f7d590b2aab8683232b7bd25
		compatChange{"POWER_RESET_SC27XX", "drivers/power/reset/Kconfig"},
		// CONFIG_PROC_THERMAL_MMIO_RAPL as a module is invalid before https://git.kernel.org/linus/a5923b6c3137b9d4fc2ea1c997f6e4d51ac5d774
		compatChange{"PROC_THERMAL_MMIO_RAPL", "drivers/thermal/intel/int340x_thermal/Kconfig"},
		// CONFIG_PWM_CRC as a module is invalid before https://git.kernel.org/linus/91a69d38cf97b195fef1a10ea53cf429aa134497
		compatChange{"PWM_CRC", "drivers/pwm/Kconfig"},
		// CONFIG_QCOM_IPCC as a module is invalid before https://git.kernel.org/linus/8d7e5908c0bcf8a0abc437385e58e49abab11a93
		compatChange{"QCOM_IPCC", "drivers/mailbox/Kconfig"},
	)

	// CONFIG_QCOM_RPMPD as a module is invalid before https://git.kernel.org/linus/f29808b2fb85a7ff2d4830aa1cb736c8c9b986f4
	// CONFIG_QCOM_RPMHPD as a module is invalid before https://git.kernel.org/linus/d4889ec1fc6ac6321cc1e8b35bb656f970926a09
	for _, val := range []string{"", "H"} {
		changes = append(changes, compatChange{"QCOM_RPM" + val + "PD", "drivers/soc/qcom/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_RADIO_ADAPTERS as a module is invalid before https://git.kernel.org/linus/215d49a41709610b9e82a49b27269cfaff1ef0b6
		compatChange{"RADIO_ADAPTERS", "drivers/media/radio/Kconfig"},
		// CONFIG_RATIONAL as a module is invalid before https://git.kernel.org/linus/bcda5fd34417c89f653cc0912cc0608b36ea032c
		compatChange{"RATIONAL", "lib/math/Kconfig"},
	)

	// CONFIG_RESET_IMX7 as a module is invalid before https://git.kernel.org/linus/a442abbbe186e14128d18bc3e42fb0fbf1a62210
	// CONFIG_RESET_MESON as a module is invalid before https://git.kernel.org/linus/3bfe8933f9d187f93f0d0910b741a59070f58c4c
	for _, val := range []string{"IMX7", "MESON"} {
		changes = append(changes, compatChange{"RESET_" + val, "drivers/reset/Kconfig"})
	}

	// CONFIG_RTW88_8822BE as a module is invalid before https://git.kernel.org/linus/416e87fcc780cae8d72cb9370fa0f46007faa69a
	// CONFIG_RTW88_8822CE as a module is invalid before https://git.kernel.org/linus/ba0fbe236fb8a7b992e82d6eafb03a600f5eba43
	for _, val := range []string{"B", "C"} {
		changes = append(changes, compatChange{"RTW88_8822" + val + "E", "drivers/net/wireless/realtek/rtw88/Kconfig"})
	}

	// CONFIG_SERIAL_SC16IS7XX_{I2C,SPI} as modules is invalid before https://git.kernel.org/linus/d49216438139bca0454e69b6c4ab8a01af2b72ed
	for _, val := range []string{"I2C", "SPI"} {
		changes = append(changes, compatChange{"SERIAL_SC16IS7XX_" + val, "drivers/tty/serial/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_SERIAL_LANTIQ as a module is invalid before https://git.kernel.org/linus/ad406341bdd7d22ba9497931c2df5dde6bb9440e
		compatChange{"SERIAL_LANTIQ", "drivers/tty/serial/Kconfig"},
		// CONFIG_SND_SOC_SOF_DEBUG_PROBES as a module is invalid before https://git.kernel.org/linus/3dc0d709177828a22dfc9d0072e3ac937ef90d06
		compatChange{"SND_SOC_SOF_DEBUG_PROBES", "sound/soc/sof/Kconfig"},
		// CONFIG_SND_SOC_SOF_HDA_PROBES as a module is invalid before https://git.kernel.org/linus/e18610eaa66a1849aaa00ca43d605fb1a6fed800
		compatChange{"SND_SOC_SOF_HDA_PROBES", "sound/soc/sof/intel/Kconfig"},
		// CONFIG_SND_SOC_SPRD_MCDT as a module is invalid before https://git.kernel.org/linus/fd357ec595d36676c239d8d16706a270a961ac32
		compatChange{"SND_SOC_SPRD_MCDT", "sound/soc/sprd/Kconfig"},
		// CONFIG_SUNXI_CCU as a module is invalid before https://git.kernel.org/linus/91389c390521a02ecfb91270f5b9d7fae4312ae5
		compatChange{"SUNXI_CCU", "drivers/clk/sunxi-ng/Kconfig"},
		// CONFIG_SUN8I_DE2_CCU as a module is invalid before https://git.kernel.org/linus/c8c525b06f532923d21d99811a7b80bf18ffd2be
		compatChange{"SUN8I_DE2_CCU", "drivers/clk/sunxi-ng/Kconfig"},
		// CONFIG_SYSCTL_KUNIT_TEST as a module is invalid before https://git.kernel.org/linus/c475c77d5b56398303e726969e81208196b3aab3
		compatChange{"SYSCTL_KUNIT_TEST", "lib/Kconfig.debug"},
	)

	// CONFIG_TEGRA124_EMC as a module is invalid before https://git.kernel.org/linus/281462e593483350d8072a118c6e072c550a80fa
	// CONFIG_TEGRA20_EMC as a module is invalid before https://git.kernel.org/linus/0260979b018faaf90ff5a7bb04ac3f38e9dee6e3
	// CONFIG_TEGRA30_EMC as a module is invalid before https://git.kernel.org/linus/0c56eda86f8cad705d7d14e81e0e4efaeeaf4613
	for _, ver := range []string{"124", "20", "30"} {
		changes = append(changes, compatChange{"TEGRA" + ver + "_EMC", "drivers/memory/tegra/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_TI_CPTS as a module is invalid before https://git.kernel.org/linus/92db978f0d686468e527d49268e7c7e8d97d334b
		compatChange{"TI_CPTS", "drivers/net/ethernet/ti/Kconfig"},
		// CONFIG_TI_K3_PSIL as a module is invalid before https://git.kernel.org/linus/d15aae73a9f6c321167b9120f263df7dbc08d2ba
		compatChange{"TI_K3_PSIL", "drivers/dma/ti/Kconfig"},
		// CONFIG_TI_K3_RINGACC as a module is invalid before https://git.kernel.org/linus/c07f216a8b72bac0c6e921793ad656a3b77f3545
		compatChange{"TI_K3_RINGACC", "drivers/soc/ti/Kconfig"},
	)

	// CONFIG_TI_K3_UDMA and CONFIG_TI_K3_UDMA_GLUE_LAYER as modules is invalid before https://git.kernel.org/linus/56b0a668cb35c5f04ef98ffc22b297f116fe7108
	for _, suffix := range []string{"", "_GLUE_LAYER"} {
		changes = append(changes, compatChange{"TI_K3_UDMA" + suffix, "drivers/dma/ti/Kconfig"})
	}

	// CONFIG_TI_SCI_INTA_IRQCHIP and TI_SCI_INTR_IRQCHIP as modules is invalid before https://git.kernel.org/linus/2d95ffaecbc2a29cf4a0fa8e63ce99ded7184991
	// and https://git.kernel.org/linus/b8b26ae398c4577893a4c43195dba0e75af6e33f
	for _, val := range []string{"A", "R"} {
		changes = append(changes, compatChange{"TI_SCI_INT" + val + "_IRQCHIP", "drivers/irqchip/Kconfig"})
	}

	changes = append(changes,
		// CONFIG_UNICODE as a module is invalid before https://git.kernel.org/linus/5298d4bfe80f6ae6ae2777bcd1357b0022d98573
		compatChange{"UNICODE", "fs/unicode/Kconfig"},
		// CONFIG_VFIO_VIRQFD as a module is invalid after https://git.kernel.org/next/linux-next/c/e2d55709398e62cf53e5c7df3758ae52cc62d63a
		compatChange{"VFIO_VIRQFD", "drivers/vfio/Kconfig"},
		// CONFIG_VIRTIO_IOMMU as a module is invalid before https://git.kernel.org/linus/fa4afd78ea12cf31113f8b146b696c500d6a9dc3
		compatChange{"VIRTIO_IOMMU", "drivers/iommu/Kconfig"},
		// CONFIG_XEN_PVCALLS_BACKEND as a module is invalid before https://git.kernel.org/linus/45da234467f381239d87536c86597149f189d375
		compatChange{"XEN_PVCALLS_BACKEND", "drivers/xen/Kconfig"},
	)

	return changes
}

// initialDistroPrep disables options in a distribution configuration
// that are known not to work against the kernel under test, before the
// configuration is staged.
func (r *Runner) initialDistroPrep() error {
	config := r.DistroConfig
	distro := distroName(config)

	// CONFIG_DEBUG_INFO_BTF has two conditions:
	//
	//   * pahole needs to be available
	//
	//   * The kernel needs https://git.kernel.org/linus/90ceddcb495008ac8ba7a3dce297841efcd7d584,
	//     which is first available in 5.7: https://github.com/ClangBuiltLinux/linux/issues/871
	//
	// If either of those conditions are false, this option has to be
	// disabled so that the build does not error.
	debugInfoBTF := IsSet(config, "DEBUG_INFO_BTF")
	paholeAvailable := toolchain.HaveBinary("pahole")
	if debugInfoBTF && !(paholeAvailable && !r.LSM.Version().LessThan(semver.MustParse("5.7.0"))) {
		r.Configs = append(r.Configs, "CONFIG_DEBUG_INFO_BTF=n")
	}

	if !r.LSM.HasCommit("e96f2d64c812d") && r.LSM.HasConfig("CONFIG_BPF_PRELOAD") &&
		IsSet(config, "BPF_PRELOAD") {
		r.Configs = append(r.Configs, "CONFIG_BPF_PRELOAD=n")
	}

	if distro == "archlinux" && IsSet(config, "EXTRA_FIRMWARE") {
		r.Configs = append(r.Configs, `CONFIG_EXTRA_FIRMWARE=""`)
	}

	if distro == "debian" && IsSet(config, "SYSTEM_TRUSTED_KEYS") {
		r.Configs = append(r.Configs, "CONFIG_SYSTEM_TRUSTED_KEYS=n")
	}

	// Nothing is explicitly wrong with CONFIG_EFI_ZBOOT but it changes
	// the default image target, which boot-utils does not expect, so
	// undo it to get the expected image for boot testing.
	stem := strings.TrimSuffix(filepath.Base(config), filepath.Ext(config))
	if (stem == "aarch64" || stem == "arm64") && IsSet(config, "EFI_ZBOOT") {
		r.Configs = append(r.Configs, "CONFIG_EFI_ZBOOT=n")
	}

	return nil
}

// distroAdjustments computes the options a staged distribution
// configuration needs changed for this tree, after it has been copied
// to the build folder.
func (r *Runner) distroAdjustments(ctx context.Context) ([]string, error) {
	var configs []string

	config := r.DistroConfig
	distro := distroName(config)

	if distro == "alpine" {
		// CONFIG_UNIX was not enabled in the linux-edge to linux-stable
		// transition but it is needed to avoid a warning on shutdown
		configs = append(configs, "CONFIG_UNIX=y")
		// CONFIG_INET is needed to avoid a warning about setting up lo
		configs = append(configs, "CONFIG_INET=y")
		// The new Alpine configurations are defconfig style, which means
		// that on 5.15, CONFIG_BPF_UNPRIV_DEFAULT_OFF is not on by default
		// because of a lack of commit 8a03e56b253e ("bpf: Disallow
		// unprivileged bpf by default"), which causes a warning on boot.
		configs = append(configs, "CONFIG_BPF_UNPRIV_DEFAULT_OFF=y")
	}

	if distro == "debian" {
		// The Android drivers are not modular in upstream
		for _, androidCfg := range []string{"ANDROID_BINDER_IPC", "ASHMEM"} {
			if IsModular(r.Folders.Build, androidCfg) {
				configs = append(configs, "CONFIG_"+androidCfg+"=y")
			}
		}
	}

	name := filepath.Base(config)
	if strings.Contains(name, "ppc64le") || strings.Contains(name, "powerpc64le") {
		search := "int \"Order of maximal physically contiguous allocations\"\n" +
			"\tdefault \"8\" if PPC64 && PPC_64K_PAGES"
		order := 9
		if strings.Contains(r.LSM.ReadFile("arch/powerpc/Kconfig"), search) {
			order = 8
		}
		configs = append(configs, fmt.Sprintf("CONFIG_ARCH_FORCE_MAX_ORDER=%d", order))
	}

	for _, change := range compatChanges() {
		symIsM := IsModular(r.Folders.Build, change.sym)

		canBeM := false
		if kconfigText := r.LSM.ReadFile(change.file); kconfigText != "" {
			squeezed := strings.Join(strings.Fields(kconfigText), "")
			if strings.Contains(squeezed, "config"+change.sym+"tristate") {
				canBeM = true
			}
		}

		if symIsM && !canBeM {
			configs = append(configs, "CONFIG_"+change.sym+"=y")
			if change.sym == "CS89x0_PLATFORM" {
				configs = append(configs, "CONFIG_CS89x0=y")
			}
		}
	}

	// CONFIG_MFD_ARIZONA as a module is invalid before https://git.kernel.org/linus/33d550701b915938bd35ca323ee479e52029adf2
	// Checked via the Makefile because 'tristate'/'bool' is not right
	// after 'config MFD_ARIZONA'.
	if IsModular(r.Folders.Build, "MFD_ARIZONA") &&
		!strings.Contains(r.LSM.ReadFile("drivers/mfd/Makefile"), "arizona-objs") {
		configs = append(configs, "CONFIG_MFD_ARIZONA=y")
	}

	// The type of CONFIG_BASE_SMALL changed from int to bool:
	// https://lore.kernel.org/20240505080343.1471198-1-yoann.congal@smile.fr/
	initKconfig := strings.Join(strings.Fields(r.LSM.ReadFile("init/Kconfig")), "")
	baseSmall := ConfigValue(r.Folders.Build, "BASE_SMALL")
	if strings.Contains(initKconfig, "configBASE_SMALLint") && baseSmall == "n" {
		configs = append(configs, "CONFIG_BASE_SMALL=0")
	}
	if strings.Contains(initKconfig, "configBASE_SMALLbool") && baseSmall == "0" {
		configs = append(configs, "CONFIG_BASE_SMALL=n")
	}

	// CONFIG_UBSAN_SIGNED_WRAP was renamed to CONFIG_UBSAN_INTEGER_WRAP,
	// so disable whichever spelling this tree does not know about.
	ubsanKconfig := r.LSM.ReadFile("lib/Kconfig.ubsan")
	checkCfg := "UBSAN_INTEGER_WRAP"
	otherCfg := "UBSAN_SIGNED_WRAP"
	if strings.Contains(ubsanKconfig, "config UBSAN_INTEGER_WRAP") {
		checkCfg, otherCfg = otherCfg, checkCfg
	}
	if !IsSet(r.Folders.Build, checkCfg) {
		configs = append(configs, "CONFIG_"+otherCfg+"=n")
	}

	return configs, nil
}
