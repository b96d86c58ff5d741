package intrinsic

import "strings"

// IsReserved reports whether a function name belongs to the intrinsic
// namespace (either generic llvm.* or target genx.*).
func IsReserved(name string) bool {
	return strings.HasPrefix(name, "llvm.")
}

// IsLifetimeMarker reports whether a function name is a lifetime
// start/end marker. Lifetime markers carry no semantic payload for the
// target backend and are dropped wholesale.
func IsLifetimeMarker(name string) bool {
	return strings.HasPrefix(name, "llvm.lifetime.start") ||
		strings.HasPrefix(name, "llvm.lifetime.end")
}

// IsCtlz reports whether a function name is the count-leading-zeros
// intrinsic.
func IsCtlz(name string) bool {
	return strings.HasPrefix(name, "llvm.ctlz.")
}
