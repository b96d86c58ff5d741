package intrinsic

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir/types"
)

// Suffix returns the overload suffix for a type, as used in intrinsic
// function names ("f32", "i16", "v4f32", ...).
func Suffix(t types.Type) string {
	switch t := t.(type) {
	case *types.IntType:
		return fmt.Sprintf("i%d", t.BitSize)
	case *types.FloatType:
		switch t.Kind {
		case types.FloatKindHalf:
			return "f16"
		case types.FloatKindFloat:
			return "f32"
		case types.FloatKindDouble:
			return "f64"
		case types.FloatKindFP128:
			return "f128"
		default:
			return "f" + t.Kind.String()
		}
	case *types.VectorType:
		return fmt.Sprintf("v%d%s", t.Len, Suffix(t.ElemType))
	case *types.PointerType:
		return fmt.Sprintf("p%d%s", t.AddrSpace, Suffix(t.ElemType))
	}
	return strings.ReplaceAll(t.String(), " ", "")
}

// MangledName returns the full declaration name for an intrinsic
// instantiated with the given ordered type parameters.
func MangledName(id ID, overloads []types.Type) string {
	name := id.Name()
	for _, t := range overloads {
		name += "." + Suffix(t)
	}
	return name
}
