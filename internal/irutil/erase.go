package irutil

import (
	"github.com/llir/llvm/ir"
)

// EraseInsts removes the marked instructions from every block of f.
// Deletion is always deferred to a set so that the iteration that found the
// instructions is never invalidated.
func EraseInsts(f *ir.Func, dead map[ir.Instruction]bool) {
	if len(dead) == 0 {
		return
	}
	for _, block := range f.Blocks {
		kept := block.Insts[:0]
		for _, inst := range block.Insts {
			if !dead[inst] {
				kept = append(kept, inst)
			}
		}
		block.Insts = kept
	}
}

// EraseInstsInModule removes the marked instructions from every function.
func EraseInstsInModule(m *ir.Module, dead map[ir.Instruction]bool) {
	if len(dead) == 0 {
		return
	}
	for _, f := range m.Funcs {
		EraseInsts(f, dead)
	}
}

// RemoveFunc detaches f from its module. Reports whether f was found.
func RemoveFunc(m *ir.Module, f *ir.Func) bool {
	for i, cand := range m.Funcs {
		if cand == f {
			m.Funcs = append(m.Funcs[:i], m.Funcs[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveGlobal detaches g from its module. Reports whether g was found.
func RemoveGlobal(m *ir.Module, g *ir.Global) bool {
	for i, cand := range m.Globals {
		if cand == g {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			return true
		}
	}
	return false
}

// FindFunc returns the function of the given name in m, or nil.
func FindFunc(m *ir.Module, name string) *ir.Func {
	for _, f := range m.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// FindGlobal returns the global of the given name in m, or nil.
func FindGlobal(m *ir.Module, name string) *ir.Global {
	for _, g := range m.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}
