// Package bif implements the builtin-function import pipeline: the
// demand-driven link of library bodies into the main module, library
// pruning and bulk materialization, the one-definition module merge, flag
// initialization, signature repair and builtin lowering.
package bif

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"biflink/internal/diag"
)

// calledFuncs collects the distinct direct callees of f in call-site
// order, propagating f's calling convention onto every call instruction on
// the way. Indirect and cast-wrapped callees are not followed here; the
// signature-repair pass deals with those.
func calledFuncs(f *ir.Func) []*ir.Func {
	visited := make(map[*ir.Func]bool)
	var out []*ir.Func
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			call.CallingConv = f.CallingConv
			callee, ok := call.Callee.(*ir.Func)
			if !ok {
				continue
			}
			if visited[callee] {
				continue
			}
			visited[callee] = true
			out = append(out, callee)
		}
	}
	return out
}

// explore walks the call graph from root, materializing library bodies on
// demand. The visited set is scoped to this root; a function reachable
// from several roots is walked once per root. Implemented as an explicit
// stack so depth is bounded by the worklist, not the Go stack.
func (p *pipeline) explore(root *ir.Func) error {
	visited := map[*ir.Func]bool{root: true}
	stack := []*ir.Func{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, callee := range calledFuncs(cur) {
			fn := callee
			if len(callee.Blocks) == 0 && callee.Parent != p.lib.Module {
				// Declared in the main module; resolve in the library.
				src := p.lib.Lookup(callee.Name())
				if src == nil {
					// Unresolved external symbol: left for the final
					// link or the backend to diagnose.
					diag.Info(p.rep, diag.LinkUnresolvedBuiltin, callee.Name(), "not defined in builtin library")
					continue
				}
				fn = src
			}
			if fn.Parent == p.lib.Module && p.lib.IsMaterializable(fn.Name()) {
				if err := p.lib.Materialize(fn.Name()); err != nil {
					diag.Error(p.rep, diag.LinkMaterializeFailure, fn.Name(), err.Error())
					return fmt.Errorf("demand link: %w", err)
				}
				p.materialized++
				fn.CallingConv = cur.CallingConv
			}
			if len(fn.Blocks) == 0 {
				continue
			}
			if !visited[fn] {
				visited[fn] = true
				stack = append(stack, fn)
			}
		}
	}
	return nil
}
