package bif

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

// VerifyCalls checks the post-pipeline invariant: every call through a
// direct function reference matches the callee's declared signature, and
// no call is left invoking a function through a constant pointer cast.
func VerifyCalls(m *ir.Module) error {
	for _, f := range m.Funcs {
		for _, block := range f.Blocks {
			for _, inst := range block.Insts {
				call, ok := inst.(*ir.InstCall)
				if !ok {
					continue
				}
				switch callee := call.Callee.(type) {
				case *ir.Func:
					if err := checkCallSig(call, callee); err != nil {
						return fmt.Errorf("in %s: %w", f.Name(), err)
					}
				case *constant.ExprBitCast:
					return fmt.Errorf("in %s: call through pointer cast of %s survived repair", f.Name(), callee.From.Ident())
				}
			}
		}
	}
	return nil
}

func checkCallSig(call *ir.InstCall, callee *ir.Func) error {
	sig := callee.Sig
	if sig.Variadic {
		if len(call.Args) < len(sig.Params) {
			return fmt.Errorf("call to %s: %d args, variadic callee needs at least %d", callee.Name(), len(call.Args), len(sig.Params))
		}
	} else if len(call.Args) != len(sig.Params) {
		return fmt.Errorf("call to %s: %d args, callee declares %d", callee.Name(), len(call.Args), len(sig.Params))
	}
	for i, param := range sig.Params {
		if !param.Equal(call.Args[i].Type()) {
			return fmt.Errorf("call to %s: arg %d is %s, callee declares %s", callee.Name(), i, call.Args[i].Type(), param)
		}
	}
	return nil
}
