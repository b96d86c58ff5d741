// Package repair resolves call sites that invoke a function through a
// pointer-type reinterpretation whose call signature does not match the
// callee's declared signature. Such sites are a structural consequence of
// merging independently-compiled modules that declared the same function
// with different types.
package repair

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"biflink/internal/diag"
	"biflink/internal/irutil"
)

// cloneCache keeps at most one clone per (original function, required
// signature); call sites needing the same mismatched signature share it.
type cloneCache struct {
	clones map[*ir.Func][]*ir.Func
}

func (c *cloneCache) find(orig *ir.Func, sig *types.FuncType) *ir.Func {
	for _, clone := range c.clones[orig] {
		if clone.Sig.Equal(sig) {
			return clone
		}
	}
	return nil
}

func (c *cloneCache) add(orig, clone *ir.Func) {
	if c.clones == nil {
		c.clones = make(map[*ir.Func][]*ir.Func)
	}
	c.clones[orig] = append(c.clones[orig], clone)
}

// Run repairs every mismatched pointer-cast call in the module. Calls
// whose required arity differs from the original definition's arity are
// reported and left untouched; cloning a body under a different parameter
// count would be unsound.
func Run(m *ir.Module, rep diag.Reporter) error {
	cache := &cloneCache{}
	type edit struct {
		old     *ir.InstCall
		repl    *ir.InstCall
		expr    *constant.ExprBitCast
		origFn  *ir.Func
		inBlock *ir.Block
	}
	var edits []edit

	for _, f := range m.Funcs {
		for _, block := range f.Blocks {
			for _, inst := range block.Insts {
				call, ok := inst.(*ir.InstCall)
				if !ok {
					continue
				}
				if _, direct := call.Callee.(*ir.Func); direct {
					continue
				}
				expr, ok := call.Callee.(*constant.ExprBitCast)
				if !ok {
					continue
				}
				orig, ok := irutil.StripPointerCasts(expr).(*ir.Func)
				if !ok || len(orig.Blocks) == 0 {
					continue
				}
				callSig, ok := callSignature(call, expr)
				if !ok || callSig.Equal(orig.Sig) {
					continue
				}
				if len(callSig.Params) != len(orig.Params) {
					diag.Warning(rep, diag.RepairArityMismatch, orig.Name(),
						fmt.Sprintf("call needs %d params, definition has %d; call left unresolved",
							len(callSig.Params), len(orig.Params)))
					continue
				}

				clone := cache.find(orig, callSig)
				if clone == nil {
					var err error
					clone, err = cloneWithSignature(m, orig, callSig)
					if err != nil {
						diag.Error(rep, diag.RepairCloneFailure, orig.Name(), err.Error())
						return fmt.Errorf("signature repair: %w", err)
					}
					cache.add(orig, clone)
				}

				repl := ir.NewCall(clone, call.Args...)
				if call.LocalName != "" {
					repl.SetName(call.Name())
				}
				repl.CallingConv = call.CallingConv
				edits = append(edits, edit{old: call, repl: repl, expr: expr, origFn: orig, inBlock: block})
			}
		}
	}

	// Structural edits are deferred until the scan is complete.
	for _, e := range edits {
		for i, inst := range e.inBlock.Insts {
			if inst == e.old {
				e.inBlock.Insts[i] = e.repl
				break
			}
		}
		if err := irutil.ReplaceAllUses(m, e.old, e.repl); err != nil {
			return fmt.Errorf("signature repair: %w", err)
		}
	}
	// Drop originals that became unreferenced once their cast uses died.
	for _, e := range edits {
		used, err := irutil.HasUses(m, e.origFn)
		if err != nil {
			return fmt.Errorf("signature repair: %w", err)
		}
		if !used {
			irutil.RemoveFunc(m, e.origFn)
		}
	}
	return nil
}

// callSignature recovers the signature the call site was compiled against
// from the bitcast destination type.
func callSignature(call *ir.InstCall, expr *constant.ExprBitCast) (*types.FuncType, bool) {
	ptr, ok := expr.To.(*types.PointerType)
	if !ok {
		return nil, false
	}
	sig, ok := ptr.ElemType.(*types.FuncType)
	if !ok {
		return nil, false
	}
	return sig, true
}

// cloneWithSignature creates a function with the required signature, the
// original's linkage, calling convention and attributes, parameter names
// copied by position, and the original body cloned with a one-to-one
// parameter value mapping. Global symbols are unique per module and there
// is no automatic renaming, so the clone's name is the original's with a
// numeric suffix appended until free.
func cloneWithSignature(m *ir.Module, orig *ir.Func, sig *types.FuncType) (*ir.Func, error) {
	params := make([]*ir.Param, len(sig.Params))
	for i, t := range sig.Params {
		params[i] = ir.NewParam(orig.Params[i].Name(), t)
	}
	name := orig.Name()
	for i := 1; irutil.FindFunc(m, name) != nil; i++ {
		name = fmt.Sprintf("%s.%d", orig.Name(), i)
	}
	clone := m.NewFunc(name, sig.RetType, params...)
	clone.Sig.Variadic = sig.Variadic
	clone.Linkage = orig.Linkage
	clone.CallingConv = orig.CallingConv
	clone.FuncAttrs = orig.FuncAttrs

	vmap := make(map[value.Value]value.Value, len(params))
	for i, p := range orig.Params {
		vmap[p] = params[i]
	}
	if err := irutil.CloneBody(clone, orig, vmap); err != nil {
		irutil.RemoveFunc(m, clone)
		return nil, err
	}
	return clone, nil
}
