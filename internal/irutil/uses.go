package irutil

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
)

// remapValue returns the replacement for v when v is old, or when v is a
// constant pointer-cast expression over old. Returns v unchanged otherwise.
func remapValue(v, old, repl value.Value) value.Value {
	if v == old {
		return repl
	}
	switch expr := v.(type) {
	case *constant.ExprBitCast:
		from := remapValue(expr.From, old, repl)
		if from != expr.From {
			return constant.NewBitCast(from.(constant.Constant), expr.To)
		}
	case *constant.ExprAddrSpaceCast:
		from := remapValue(expr.From, old, repl)
		if from != expr.From {
			return constant.NewAddrSpaceCast(from.(constant.Constant), expr.To)
		}
	case *constant.ExprGetElementPtr:
		src := remapValue(expr.Src, old, repl)
		if src != expr.Src {
			return constant.NewGetElementPtr(expr.ElemType, src.(constant.Constant), expr.Indices...)
		}
	}
	return v
}

// refersTo reports whether v is old or a constant expression over old.
func refersTo(v, old value.Value) bool {
	if v == old {
		return true
	}
	switch expr := v.(type) {
	case *constant.ExprBitCast:
		return refersTo(expr.From, old)
	case *constant.ExprAddrSpaceCast:
		return refersTo(expr.From, old)
	case *constant.ExprGetElementPtr:
		return refersTo(expr.Src, old)
	}
	return false
}

// ReplaceUsesInFunc redirects every use of old inside f to repl, including
// uses reached through constant pointer-cast expressions.
func ReplaceUsesInFunc(f *ir.Func, old, repl value.Value) error {
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			ops, err := Operands(inst)
			if err != nil {
				return err
			}
			for _, op := range ops {
				*op = remapValue(*op, old, repl)
			}
		}
		ops, err := TermOperands(block.Term)
		if err != nil {
			return err
		}
		for _, op := range ops {
			*op = remapValue(*op, old, repl)
		}
	}
	return nil
}

// ReplaceAllUses redirects every use of old in the module to repl: all
// function bodies and global initializers.
func ReplaceAllUses(m *ir.Module, old, repl value.Value) error {
	for _, f := range m.Funcs {
		if err := ReplaceUsesInFunc(f, old, repl); err != nil {
			return err
		}
	}
	for _, g := range m.Globals {
		if g.Init == nil {
			continue
		}
		if mapped := remapValue(g.Init, old, repl); mapped != g.Init {
			g.Init = mapped.(constant.Constant)
		}
	}
	return nil
}

// NumUses counts the uses of v across the module, including uses through
// constant pointer-cast expressions.
func NumUses(m *ir.Module, v value.Value) (int, error) {
	n := 0
	for _, f := range m.Funcs {
		for _, block := range f.Blocks {
			for _, inst := range block.Insts {
				ops, err := Operands(inst)
				if err != nil {
					return 0, err
				}
				for _, op := range ops {
					if refersTo(*op, v) {
						n++
					}
				}
			}
			ops, err := TermOperands(block.Term)
			if err != nil {
				return 0, err
			}
			for _, op := range ops {
				if refersTo(*op, v) {
					n++
				}
			}
		}
	}
	for _, g := range m.Globals {
		if g.Init != nil && refersTo(g.Init, v) {
			n++
		}
	}
	return n, nil
}

// HasUses reports whether v has at least one use in the module.
func HasUses(m *ir.Module, v value.Value) (bool, error) {
	n, err := NumUses(m, v)
	return n > 0, err
}

// StripPointerCasts peels constant pointer-cast expressions off v and
// returns the underlying value.
func StripPointerCasts(v value.Value) value.Value {
	for {
		switch expr := v.(type) {
		case *constant.ExprBitCast:
			v = expr.From
		case *constant.ExprAddrSpaceCast:
			v = expr.From
		default:
			return v
		}
	}
}
