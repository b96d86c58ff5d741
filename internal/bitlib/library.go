// Package bitlib holds the precompiled builtin-function library in a
// lazily-materializable form: a declaration-only skeleton module plus the
// serialized body of each defined function. Bodies are loaded on demand and
// grafted into the skeleton.
package bitlib

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"biflink/internal/irutil"
)

// ErrNoBody is returned when a materialization target has no serialized
// body in the library.
var ErrNoBody = errors.New("no body in library")

// Library is a parsed but not fully materialized builtin library module.
// The skeleton module carries every function; functions with a pending
// body are declarations until Materialize loads them.
type Library struct {
	// Module is the skeleton; it is consumed by the link step.
	Module *ir.Module

	path         string
	header       string
	bodies       map[string]string
	decls        map[string]string
	materialized map[string]bool
	contentHash  [32]byte
}

// declSig returns the declaration signature text for a lazily-defined
// function, with linkage keywords stripped (a declaration cannot carry
// internal linkage).
func (l *Library) declSig(name string) string {
	return l.decls[name]
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// IsMaterializable reports whether name has a body that is serialized but
// not yet loaded.
func (l *Library) IsMaterializable(name string) bool {
	return l.bodies[name] != "" && !l.materialized[name]
}

// HasBody reports whether name is defined (now or lazily) in the library.
func (l *Library) HasBody(name string) bool {
	return l.bodies[name] != ""
}

// Lookup returns the library function of the given name when it has a
// definition (loaded or pending); declarations resolve to nil.
func (l *Library) Lookup(name string) *ir.Func {
	f := irutil.FindFunc(l.Module, name)
	if f == nil {
		return nil
	}
	if len(f.Blocks) == 0 && !l.IsMaterializable(name) {
		return nil
	}
	return f
}

// Materialize loads the body of name into the skeleton module. Loading an
// already-materialized function is a no-op. The failure reason is stable
// and names the function.
func (l *Library) Materialize(name string) error {
	if l.materialized[name] {
		return nil
	}
	body, ok := l.bodies[name]
	if !ok {
		return fmt.Errorf("materialize %s: %w", name, ErrNoBody)
	}

	// Parse the single body against the library header, with every other
	// function visible as a declaration so call operands resolve.
	text := l.header
	for other := range l.bodies {
		if other != name {
			text += "declare " + l.declSig(other) + "\n"
		}
	}
	text += body
	mini, err := asm.ParseString(l.path+"#"+name, text)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", name, err)
	}
	src := irutil.FindFunc(mini, name)
	if src == nil {
		return fmt.Errorf("materialize %s: body parsed but function missing", name)
	}

	dst := irutil.FindFunc(l.Module, name)
	if dst == nil {
		return fmt.Errorf("materialize %s: not declared in library skeleton", name)
	}

	// Graft: move the parsed signature and body onto the skeleton
	// function, then retarget module-level references back into the
	// skeleton module.
	dst.Sig = src.Sig
	dst.Params = src.Params
	dst.Blocks = src.Blocks
	dst.CallingConv = src.CallingConv
	dst.Linkage = src.Linkage
	for _, block := range dst.Blocks {
		block.Parent = dst
	}
	if err := l.retarget(dst); err != nil {
		return fmt.Errorf("materialize %s: %w", name, err)
	}
	l.materialized[name] = true
	return nil
}

// PruneUnused removes every function that is a declaration or still
// materializable and has no use from a materialized body. This keeps the
// later force-materialize step proportional to the demand closure instead
// of the whole library. Two-phase: collect, then delete.
func (l *Library) PruneUnused() (int, error) {
	used := make(map[*ir.Func]bool)
	for _, f := range l.Module.Funcs {
		for _, block := range f.Blocks {
			for _, inst := range block.Insts {
				ops, err := irutil.Operands(inst)
				if err != nil {
					return 0, err
				}
				for _, op := range ops {
					markFuncRefs(*op, used)
				}
			}
			ops, err := irutil.TermOperands(block.Term)
			if err != nil {
				return 0, err
			}
			for _, op := range ops {
				markFuncRefs(*op, used)
			}
		}
	}
	for _, g := range l.Module.Globals {
		if g.Init != nil {
			markFuncRefs(g.Init, used)
		}
	}

	var dead []*ir.Func
	for _, f := range l.Module.Funcs {
		if len(f.Blocks) == 0 && !used[f] {
			dead = append(dead, f)
		}
	}
	for _, f := range dead {
		irutil.RemoveFunc(l.Module, f)
		delete(l.bodies, f.Name())
		delete(l.decls, f.Name())
		delete(l.materialized, f.Name())
	}
	return len(dead), nil
}

func markFuncRefs(v value.Value, used map[*ir.Func]bool) {
	switch v := v.(type) {
	case *ir.Func:
		used[v] = true
	case *constant.ExprBitCast:
		markFuncRefs(v.From, used)
	case *constant.ExprAddrSpaceCast:
		markFuncRefs(v.From, used)
	case *constant.ExprGetElementPtr:
		markFuncRefs(v.Src, used)
	}
}

// NumMaterialized returns how many bodies have been loaded so far.
func (l *Library) NumMaterialized() int { return len(l.materialized) }

// NumPending returns how many bodies remain serialized.
func (l *Library) NumPending() int { return len(l.bodies) - len(l.materialized) }

// MaterializeAll force-loads every pending body.
func (l *Library) MaterializeAll() error {
	for name := range l.bodies {
		if err := l.Materialize(name); err != nil {
			return err
		}
	}
	return nil
}

// retarget rewrites function and global operands of f's body to point at
// the skeleton module's objects of the same name.
func (l *Library) retarget(f *ir.Func) error {
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			ops, err := irutil.Operands(inst)
			if err != nil {
				return err
			}
			for _, op := range ops {
				*op = l.retargetValue(*op)
			}
		}
		ops, err := irutil.TermOperands(block.Term)
		if err != nil {
			return err
		}
		for _, op := range ops {
			*op = l.retargetValue(*op)
		}
	}
	return nil
}

func (l *Library) retargetValue(v value.Value) value.Value {
	switch v := v.(type) {
	case *ir.Func:
		if repl := irutil.FindFunc(l.Module, v.Name()); repl != nil {
			return repl
		}
	case *ir.Global:
		if repl := irutil.FindGlobal(l.Module, v.Name()); repl != nil {
			return repl
		}
	case *constant.ExprBitCast:
		from := l.retargetValue(v.From)
		if from != v.From {
			return constant.NewBitCast(from.(constant.Constant), v.To)
		}
	case *constant.ExprAddrSpaceCast:
		from := l.retargetValue(v.From)
		if from != v.From {
			return constant.NewAddrSpaceCast(from.(constant.Constant), v.To)
		}
	case *constant.ExprGetElementPtr:
		src := l.retargetValue(v.Src)
		if src != v.Src {
			return constant.NewGetElementPtr(v.ElemType, src.(constant.Constant), v.Indices...)
		}
	}
	return v
}
