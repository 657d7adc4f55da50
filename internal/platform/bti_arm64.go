//go:build arm64 && linux

package platform

import "runtime"

// PROT_BTI, from the Linux arm64 uapi (<asm/mman.h>); OR'd into mprotect's
// prot flags to mark a code page as a valid branch-target-identification
// landing pad. Not exposed by the stdlib syscall package.
const protBTI = 0x10

// btiSupported reports whether the current CPU implements the
// branch-target-identification extension (FEAT_BTI, ARMv8.5-A). Real
// detection reads ID_AA64PFR1_EL1 via a short arm64 asm stub the way the
// teacher's cpuid_arm64.go reads ISAR0/ISAR1; we don't carry that assembly
// (out of scope: the ISA-specific codegen backend), so this conservatively
// reports support only for linux/arm64, where BTI landing pads are ignored
// (not enforced as a fault) by CPUs that lack the extension.
func btiSupported() bool {
	return runtime.GOOS == "linux"
}
