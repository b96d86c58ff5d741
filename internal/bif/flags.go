package bif

import (
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"biflink/internal/irutil"
)

// DefaultFlags returns the compile-time configuration constants the
// library bodies branch on. Values are the i32 initializers written into
// the globals of the same name when present.
func DefaultFlags() map[string]int64 {
	return map[string]int64{
		"__FlushDenormals":                1,
		"__DashGSpecified":                0,
		"__FastRelaxedMath":               0,
		"__UseNative64BitSubgroupBuiltin": 1,
		"__CRMacros":                      1,
		"__IsSPIRV":                       0,
		"__EnableSWSrgbWrites":            0,
		"__ProfilingTimerResolution":      timerResolutionBits(0),
	}
}

// timerResolutionBits stores a float resolution as its raw bit pattern,
// which is how the library reads the global back.
func timerResolutionBits(res float32) int64 {
	return int64(math.Float32bits(res))
}

// initializeFlags writes the configured value into each flag global that
// exists in the module; absent globals are skipped.
func initializeFlags(m *ir.Module, flags map[string]int64) {
	for name, val := range flags {
		g := irutil.FindGlobal(m, name)
		if g == nil {
			continue
		}
		g.Init = constant.NewInt(types.I32, val)
	}
}
