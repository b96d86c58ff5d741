package intrinsic

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Declare returns the declaration of an intrinsic instantiated with the
// given ordered type parameters, creating it in the module if absent. One
// declaration exists per distinct type instantiation. The return type is
// the first type parameter; paramTypes lists the operand types of the
// instantiation.
//
// The mangled name is the identity: overloads must carry every type that
// distinguishes the instantiation, per the intrinsic's own mangling rules.
// Two calls that mangle to the same name share one declaration and the
// first call's paramTypes win.
func Declare(m *ir.Module, id ID, overloads []types.Type, paramTypes []types.Type) *ir.Func {
	name := MangledName(id, overloads)
	for _, f := range m.Funcs {
		if f.Name() == name {
			return f
		}
	}
	params := make([]*ir.Param, len(paramTypes))
	for i, t := range paramTypes {
		params[i] = ir.NewParam("", t)
	}
	return m.NewFunc(name, overloads[0], params...)
}
