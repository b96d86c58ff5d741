package irutil

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// copyInst returns a fresh copy of inst with its operand slices unshared.
// Operand values still point at the originals; CloneBody remaps them.
func copyInst(inst ir.Instruction) (ir.Instruction, error) {
	switch inst := inst.(type) {
	case *ir.InstFNeg:
		c := *inst
		return &c, nil
	case *ir.InstAdd:
		c := *inst
		return &c, nil
	case *ir.InstFAdd:
		c := *inst
		return &c, nil
	case *ir.InstSub:
		c := *inst
		return &c, nil
	case *ir.InstFSub:
		c := *inst
		return &c, nil
	case *ir.InstMul:
		c := *inst
		return &c, nil
	case *ir.InstFMul:
		c := *inst
		return &c, nil
	case *ir.InstUDiv:
		c := *inst
		return &c, nil
	case *ir.InstSDiv:
		c := *inst
		return &c, nil
	case *ir.InstFDiv:
		c := *inst
		return &c, nil
	case *ir.InstURem:
		c := *inst
		return &c, nil
	case *ir.InstSRem:
		c := *inst
		return &c, nil
	case *ir.InstFRem:
		c := *inst
		return &c, nil
	case *ir.InstShl:
		c := *inst
		return &c, nil
	case *ir.InstLShr:
		c := *inst
		return &c, nil
	case *ir.InstAShr:
		c := *inst
		return &c, nil
	case *ir.InstAnd:
		c := *inst
		return &c, nil
	case *ir.InstOr:
		c := *inst
		return &c, nil
	case *ir.InstXor:
		c := *inst
		return &c, nil
	case *ir.InstExtractElement:
		c := *inst
		return &c, nil
	case *ir.InstInsertElement:
		c := *inst
		return &c, nil
	case *ir.InstShuffleVector:
		c := *inst
		return &c, nil
	case *ir.InstExtractValue:
		c := *inst
		c.Indices = append([]uint64(nil), inst.Indices...)
		return &c, nil
	case *ir.InstInsertValue:
		c := *inst
		c.Indices = append([]uint64(nil), inst.Indices...)
		return &c, nil
	case *ir.InstAlloca:
		c := *inst
		return &c, nil
	case *ir.InstLoad:
		c := *inst
		return &c, nil
	case *ir.InstStore:
		c := *inst
		return &c, nil
	case *ir.InstGetElementPtr:
		c := *inst
		c.Indices = append([]value.Value(nil), inst.Indices...)
		return &c, nil
	case *ir.InstTrunc:
		c := *inst
		return &c, nil
	case *ir.InstZExt:
		c := *inst
		return &c, nil
	case *ir.InstSExt:
		c := *inst
		return &c, nil
	case *ir.InstFPTrunc:
		c := *inst
		return &c, nil
	case *ir.InstFPExt:
		c := *inst
		return &c, nil
	case *ir.InstFPToUI:
		c := *inst
		return &c, nil
	case *ir.InstFPToSI:
		c := *inst
		return &c, nil
	case *ir.InstUIToFP:
		c := *inst
		return &c, nil
	case *ir.InstSIToFP:
		c := *inst
		return &c, nil
	case *ir.InstPtrToInt:
		c := *inst
		return &c, nil
	case *ir.InstIntToPtr:
		c := *inst
		return &c, nil
	case *ir.InstBitCast:
		c := *inst
		return &c, nil
	case *ir.InstAddrSpaceCast:
		c := *inst
		return &c, nil
	case *ir.InstICmp:
		c := *inst
		return &c, nil
	case *ir.InstFCmp:
		c := *inst
		return &c, nil
	case *ir.InstSelect:
		c := *inst
		return &c, nil
	case *ir.InstPhi:
		c := *inst
		c.Incs = make([]*ir.Incoming, len(inst.Incs))
		for i, inc := range inst.Incs {
			ic := *inc
			c.Incs[i] = &ic
		}
		return &c, nil
	case *ir.InstCall:
		c := *inst
		c.Args = append([]value.Value(nil), inst.Args...)
		return &c, nil
	}
	return nil, fmt.Errorf("cannot clone instruction kind %T", inst)
}

// copyTerm returns a fresh copy of a terminator with unshared case slices.
func copyTerm(term ir.Terminator) (ir.Terminator, error) {
	switch term := term.(type) {
	case *ir.TermRet:
		c := *term
		return &c, nil
	case *ir.TermBr:
		c := *term
		return &c, nil
	case *ir.TermCondBr:
		c := *term
		return &c, nil
	case *ir.TermSwitch:
		c := *term
		c.Cases = make([]*ir.Case, len(term.Cases))
		for i, cs := range term.Cases {
			cc := *cs
			c.Cases[i] = &cc
		}
		return &c, nil
	case *ir.TermUnreachable:
		c := *term
		return &c, nil
	}
	return nil, fmt.Errorf("cannot clone terminator kind %T", term)
}

// CloneBody clones the basic blocks of src into dst, rewriting every
// operand reference through vmap. The caller seeds vmap with the parameter
// correspondence; block mappings are added here. dst must have no blocks.
func CloneBody(dst, src *ir.Func, vmap map[value.Value]value.Value) error {
	if len(dst.Blocks) != 0 {
		return fmt.Errorf("clone destination %q already has a body", dst.Name())
	}
	// Phase 1: mirror the block structure so forward branches resolve.
	for _, block := range src.Blocks {
		nb := ir.NewBlock(block.Name())
		nb.Parent = dst
		dst.Blocks = append(dst.Blocks, nb)
		vmap[block] = nb
	}
	// Phase 2: copy instructions and record result correspondences so
	// operand remapping sees every local, including phi forward refs.
	for i, block := range src.Blocks {
		nb := dst.Blocks[i]
		for _, inst := range block.Insts {
			cp, err := copyInst(inst)
			if err != nil {
				return err
			}
			nb.Insts = append(nb.Insts, cp)
			if v, ok := inst.(value.Value); ok {
				vmap[v] = cp.(value.Value)
			}
		}
		cp, err := copyTerm(block.Term)
		if err != nil {
			return err
		}
		nb.Term = cp
	}
	// Phase 3: rewrite operand slots through the map.
	for _, nb := range dst.Blocks {
		for _, inst := range nb.Insts {
			ops, err := Operands(inst)
			if err != nil {
				return err
			}
			for _, op := range ops {
				if mapped, ok := vmap[*op]; ok {
					*op = mapped
				}
			}
		}
		ops, err := TermOperands(nb.Term)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if mapped, ok := vmap[*op]; ok {
				*op = mapped
			}
		}
	}
	return nil
}
