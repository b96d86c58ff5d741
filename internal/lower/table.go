// Package lower rewrites vendor builtin calls into target intrinsics and
// direct arithmetic or conversion instructions.
package lower

import "biflink/internal/intrinsic"

// Table maps builtin names to their lowering. One maps a builtin to a
// single intrinsic; Two maps it to an ordered intrinsic pair where the
// first result feeds the second. A builtin name appears in at most one of
// the two maps. Builtins matched by name prefix (itof, uitof, mul_rtz,
// add_rtz) are handled by the rewriter directly.
type Table struct {
	One map[string]intrinsic.ID
	Two map[string]intrinsic.Pair
}

// DefaultTable returns the builtin lowering table for the genx target.
func DefaultTable() *Table {
	one := map[string]intrinsic.ID{
		// float-to-float rounding
		"__builtin_IB_frnd_ne":  intrinsic.Rnde,
		"__builtin_IB_ftoh_rtn": intrinsic.Rndd,
		"__builtin_IB_ftoh_rtp": intrinsic.Rndu,
		"__builtin_IB_ftoh_rtz": intrinsic.Rndz,
		"__builtin_IB_dtoh_rtn": intrinsic.Rnde,
		"__builtin_IB_dtoh_rtp": intrinsic.Rndu,
		"__builtin_IB_dtoh_rtz": intrinsic.Rndz,
		"__builtin_IB_dtof_rtn": intrinsic.Rnde,
		"__builtin_IB_dtof_rtp": intrinsic.Rndu,
		"__builtin_IB_dtof_rtz": intrinsic.Rndz,
		// math
		"__builtin_IB_frnd_pi":        intrinsic.Rndu,
		"__builtin_IB_frnd_ni":        intrinsic.Rndd,
		"__builtin_IB_frnd_zi":        intrinsic.Rndz,
		"__builtin_IB_native_cosf":    intrinsic.Cos,
		"__builtin_IB_native_cosh":    intrinsic.Cos,
		"__builtin_IB_native_sinf":    intrinsic.Sin,
		"__builtin_IB_native_sinh":    intrinsic.Sin,
		"__builtin_IB_native_exp2f":   intrinsic.Exp,
		"__builtin_IB_native_exp2h":   intrinsic.Exp,
		"__builtin_IB_native_log2f":   intrinsic.Log,
		"__builtin_IB_native_log2h":   intrinsic.Log,
		"__builtin_IB_native_sqrtf":   intrinsic.Sqrt,
		"__builtin_IB_native_sqrth":   intrinsic.Sqrt,
		"__builtin_IB_native_sqrtd":   intrinsic.Sqrt,
		"__builtin_IB_popcount_1u32":  intrinsic.Cbit,
		"__builtin_IB_popcount_1u16":  intrinsic.Cbit,
		"__builtin_IB_popcount_1u8":   intrinsic.Cbit,
		"__builtin_IB_native_powrf":   intrinsic.Pow,
		"__builtin_IB_fma":            intrinsic.FMA,
		"__builtin_IB_fmah":           intrinsic.FMA,
		"__builtin_IB_bfrev":          intrinsic.Bfrev,
		"__builtin_IB_fmax":           intrinsic.FMax,
		"__builtin_IB_fmin":           intrinsic.FMin,
		"__builtin_IB_HMAX":           intrinsic.FMax,
		"__builtin_IB_HMIN":           intrinsic.FMin,
		"__builtin_IB_dmin":           intrinsic.FMin,
		"__builtin_IB_dmax":           intrinsic.FMax,
		// ieee
		"__builtin_IB_ieee_sqrt":       intrinsic.IEEESqrt,
		"__builtin_IB_ieee_divide":     intrinsic.IEEEDiv,
		"__builtin_IB_ieee_divide_f64": intrinsic.IEEEDiv,
	}

	two := make(map[string]intrinsic.Pair)
	rounders := map[string]intrinsic.ID{
		"rtn": intrinsic.Rndd,
		"rtp": intrinsic.Rndu,
		"rte": intrinsic.Rnde,
	}
	for _, width := range []string{"8", "16", "32", "64"} {
		for mode, rnd := range rounders {
			two["__builtin_IB_dtoi"+width+"_"+mode] = intrinsic.Pair{First: rnd, Second: intrinsic.FPToSISat}
			two["__builtin_IB_dtoui"+width+"_"+mode] = intrinsic.Pair{First: rnd, Second: intrinsic.FPToUISat}
		}
	}
	// Fused-rounding cases run the operation first and round its result.
	two["__builtin_IB_fma_rtz_f64"] = intrinsic.Pair{First: intrinsic.FMA, Second: intrinsic.Rndz}
	two["__builtin_IB_fma_rtz_f32"] = intrinsic.Pair{First: intrinsic.FMA, Second: intrinsic.Rndz}

	return &Table{One: one, Two: two}
}
