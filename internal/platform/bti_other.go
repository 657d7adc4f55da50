//go:build !(arm64 && linux)

package platform

const protBTI = 0

func btiSupported() bool { return false }
