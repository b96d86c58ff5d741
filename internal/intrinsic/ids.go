// Package intrinsic enumerates the target intrinsic operations that vendor
// builtins lower to, and creates their declarations on demand.
package intrinsic

// ID identifies a target intrinsic operation.
type ID uint8

const (
	// None marks a call that is not an intrinsic.
	None ID = iota
	// Rnde rounds to nearest even.
	Rnde
	// Rndd rounds toward minus infinity.
	Rndd
	// Rndu rounds toward plus infinity.
	Rndu
	// Rndz rounds toward zero.
	Rndz
	// Cos is the native cosine approximation.
	Cos
	// Sin is the native sine approximation.
	Sin
	// Exp is the native base-2 exponential approximation.
	Exp
	// Log is the native base-2 logarithm approximation.
	Log
	// Sqrt is the native square root approximation.
	Sqrt
	// Pow is the native power approximation.
	Pow
	// Cbit counts set bits.
	Cbit
	// Bfrev reverses bit order.
	Bfrev
	// FMax is the floating-point maximum.
	FMax
	// FMin is the floating-point minimum.
	FMin
	// IEEESqrt is the IEEE-compliant square root.
	IEEESqrt
	// IEEEDiv is the IEEE-compliant division.
	IEEEDiv
	// FPToSISat converts float to signed integer with saturation.
	FPToSISat
	// FPToUISat converts float to unsigned integer with saturation.
	FPToUISat
	// Lzd counts leading zeros; the target opcode supports 32-bit operands only.
	Lzd
	// FMA is the fused multiply-add (generic, not target-specific).
	FMA
)

// Name returns the unsuffixed intrinsic function name.
func (id ID) Name() string {
	switch id {
	case Rnde:
		return "llvm.genx.rnde"
	case Rndd:
		return "llvm.genx.rndd"
	case Rndu:
		return "llvm.genx.rndu"
	case Rndz:
		return "llvm.genx.rndz"
	case Cos:
		return "llvm.genx.cos"
	case Sin:
		return "llvm.genx.sin"
	case Exp:
		return "llvm.genx.exp"
	case Log:
		return "llvm.genx.log"
	case Sqrt:
		return "llvm.genx.sqrt"
	case Pow:
		return "llvm.genx.pow"
	case Cbit:
		return "llvm.genx.cbit"
	case Bfrev:
		return "llvm.genx.bfrev"
	case FMax:
		return "llvm.genx.fmax"
	case FMin:
		return "llvm.genx.fmin"
	case IEEESqrt:
		return "llvm.genx.ieee.sqrt"
	case IEEEDiv:
		return "llvm.genx.ieee.div"
	case FPToSISat:
		return "llvm.genx.fptosi.sat"
	case FPToUISat:
		return "llvm.genx.fptoui.sat"
	case Lzd:
		return "llvm.genx.lzd"
	case FMA:
		return "llvm.fma"
	}
	return "llvm.genx.unknown"
}

func (id ID) String() string { return id.Name() }

// Pair is an ordered pair of intrinsics; the first one's result is the sole
// argument to the second.
type Pair struct {
	First  ID
	Second ID
}
