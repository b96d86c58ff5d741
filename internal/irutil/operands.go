// Package irutil supplies the use-graph editing surface the passes need on
// top of llir/llvm values: operand access, use queries, replace-all-uses,
// deferred erasure and function cloning with value remapping.
package irutil

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Operands returns pointers to the value operand slots of an instruction.
// Phi predecessors and call callees are included; writing through a slot
// rewrites the instruction in place.
func Operands(inst ir.Instruction) ([]*value.Value, error) {
	switch inst := inst.(type) {
	// Unary.
	case *ir.InstFNeg:
		return []*value.Value{&inst.X}, nil
	// Binary.
	case *ir.InstAdd:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstFAdd:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstSub:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstFSub:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstMul:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstFMul:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstUDiv:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstSDiv:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstFDiv:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstURem:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstSRem:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstFRem:
		return []*value.Value{&inst.X, &inst.Y}, nil
	// Bitwise.
	case *ir.InstShl:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstLShr:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstAShr:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstAnd:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstOr:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstXor:
		return []*value.Value{&inst.X, &inst.Y}, nil
	// Vector.
	case *ir.InstExtractElement:
		return []*value.Value{&inst.X, &inst.Index}, nil
	case *ir.InstInsertElement:
		return []*value.Value{&inst.X, &inst.Elem, &inst.Index}, nil
	case *ir.InstShuffleVector:
		return []*value.Value{&inst.X, &inst.Y, &inst.Mask}, nil
	// Aggregate.
	case *ir.InstExtractValue:
		return []*value.Value{&inst.X}, nil
	case *ir.InstInsertValue:
		return []*value.Value{&inst.X, &inst.Elem}, nil
	// Memory.
	case *ir.InstAlloca:
		if inst.NElems != nil {
			return []*value.Value{&inst.NElems}, nil
		}
		return nil, nil
	case *ir.InstLoad:
		return []*value.Value{&inst.Src}, nil
	case *ir.InstStore:
		return []*value.Value{&inst.Src, &inst.Dst}, nil
	case *ir.InstGetElementPtr:
		ops := []*value.Value{&inst.Src}
		for i := range inst.Indices {
			ops = append(ops, &inst.Indices[i])
		}
		return ops, nil
	// Conversion.
	case *ir.InstTrunc:
		return []*value.Value{&inst.From}, nil
	case *ir.InstZExt:
		return []*value.Value{&inst.From}, nil
	case *ir.InstSExt:
		return []*value.Value{&inst.From}, nil
	case *ir.InstFPTrunc:
		return []*value.Value{&inst.From}, nil
	case *ir.InstFPExt:
		return []*value.Value{&inst.From}, nil
	case *ir.InstFPToUI:
		return []*value.Value{&inst.From}, nil
	case *ir.InstFPToSI:
		return []*value.Value{&inst.From}, nil
	case *ir.InstUIToFP:
		return []*value.Value{&inst.From}, nil
	case *ir.InstSIToFP:
		return []*value.Value{&inst.From}, nil
	case *ir.InstPtrToInt:
		return []*value.Value{&inst.From}, nil
	case *ir.InstIntToPtr:
		return []*value.Value{&inst.From}, nil
	case *ir.InstBitCast:
		return []*value.Value{&inst.From}, nil
	case *ir.InstAddrSpaceCast:
		return []*value.Value{&inst.From}, nil
	// Other.
	case *ir.InstICmp:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstFCmp:
		return []*value.Value{&inst.X, &inst.Y}, nil
	case *ir.InstSelect:
		return []*value.Value{&inst.Cond, &inst.ValueTrue, &inst.ValueFalse}, nil
	case *ir.InstPhi:
		var ops []*value.Value
		for _, inc := range inst.Incs {
			ops = append(ops, &inc.X, &inc.Pred)
		}
		return ops, nil
	case *ir.InstCall:
		ops := []*value.Value{&inst.Callee}
		for i := range inst.Args {
			ops = append(ops, &inst.Args[i])
		}
		return ops, nil
	}
	return nil, fmt.Errorf("unsupported instruction kind %T", inst)
}

// TermOperands returns pointers to the value operand slots of a terminator,
// including branch targets.
func TermOperands(term ir.Terminator) ([]*value.Value, error) {
	switch term := term.(type) {
	case *ir.TermRet:
		if term.X != nil {
			return []*value.Value{&term.X}, nil
		}
		return nil, nil
	case *ir.TermBr:
		return []*value.Value{&term.Target}, nil
	case *ir.TermCondBr:
		return []*value.Value{&term.Cond, &term.TargetTrue, &term.TargetFalse}, nil
	case *ir.TermSwitch:
		ops := []*value.Value{&term.X, &term.TargetDefault}
		for _, c := range term.Cases {
			ops = append(ops, &c.X, &c.Target)
		}
		return ops, nil
	case *ir.TermUnreachable:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported terminator kind %T", term)
}
