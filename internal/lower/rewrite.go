package lower

import (
	"errors"
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"biflink/internal/diag"
	"biflink/internal/intrinsic"
	"biflink/internal/irutil"
)

// ErrCtlzWidth is returned when a count-leading-zeros call has an operand
// that is not a 32-bit integer; the target opcode has no wider form.
var ErrCtlzWidth = errors.New("ctlz operand must be a 32-bit integer")

// edit is one pending call replacement. The new instructions are inserted
// before the old call; result (if non-nil) takes over the old call's uses.
type edit struct {
	insts  []ir.Instruction
	result value.Value
}

// takeName moves the original call's result name onto its replacement.
// Unnamed calls stay unnamed; only the final instruction of a chain may
// take the name, local identifiers must stay unique within the function.
func takeName(repl value.Named, call *ir.InstCall) {
	if call.LocalName != "" {
		repl.SetName(call.Name())
	}
}

// Rewrite lowers every matching builtin call in the module, then erases the
// replaced calls and finalizes linkage. Returns the number of calls
// rewritten or deleted. All structural edits are deferred until the scan of
// each function completes.
func Rewrite(m *ir.Module, tab *Table, rep diag.Reporter) (int, error) {
	total := 0
	for _, f := range m.Funcs {
		n, err := rewriteFunc(m, f, tab, rep)
		if err != nil {
			return total, err
		}
		total += n
	}
	FinalizeLinkage(m)
	return total, nil
}

func rewriteFunc(m *ir.Module, f *ir.Func, tab *Table, rep diag.Reporter) (int, error) {
	edits := make(map[*ir.InstCall]edit)
	var order []*ir.InstCall

	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*ir.Func)
			if !ok {
				continue
			}
			e, matched, err := lowerCall(m, call, callee, tab, rep)
			if err != nil {
				return 0, err
			}
			if matched {
				edits[call] = e
				order = append(order, call)
			}
		}
	}
	if len(edits) == 0 {
		return 0, nil
	}

	// Apply: splice replacements in, drop the old calls, then redirect
	// the remaining uses of each old call to its replacement result.
	for _, block := range f.Blocks {
		kept := make([]ir.Instruction, 0, len(block.Insts))
		for _, inst := range block.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				kept = append(kept, inst)
				continue
			}
			e, found := edits[call]
			if !found {
				kept = append(kept, inst)
				continue
			}
			kept = append(kept, e.insts...)
		}
		block.Insts = kept
	}
	for _, call := range order {
		e := edits[call]
		if e.result == nil {
			continue
		}
		if err := irutil.ReplaceUsesInFunc(f, call, e.result); err != nil {
			return 0, err
		}
	}
	return len(edits), nil
}

// lowerCall decides the replacement for one call. matched is false when the
// callee is neither an intrinsic special case nor a table or pattern match;
// such calls are left for the linker to resolve.
func lowerCall(m *ir.Module, call *ir.InstCall, callee *ir.Func, tab *Table, rep diag.Reporter) (edit, bool, error) {
	name := callee.Name()

	// Lifetime markers are deleted outright.
	if intrinsic.IsLifetimeMarker(name) {
		return edit{}, true, nil
	}
	if intrinsic.IsCtlz(name) {
		src := call.Args[0]
		srcTy, ok := src.Type().(*types.IntType)
		if !ok || srcTy.BitSize != 32 {
			diag.Error(rep, diag.LowerCtlzWidth, callName(call), fmt.Sprintf("operand type %s", src.Type()))
			return edit{}, false, fmt.Errorf("%w: got %s", ErrCtlzWidth, src.Type())
		}
		fn := intrinsic.Declare(m, intrinsic.Lzd, []types.Type{srcTy}, []types.Type{srcTy})
		repl := ir.NewCall(fn, src)
		takeName(repl, call)
		return edit{insts: []ir.Instruction{repl}, result: repl}, true, nil
	}

	if id, ok := tab.One[name]; ok {
		retTy := callee.Sig.RetType
		fn := intrinsic.Declare(m, id, []types.Type{retTy}, argTypes(call))
		repl := ir.NewCall(fn, call.Args...)
		takeName(repl, call)
		return edit{insts: []ir.Instruction{repl}, result: repl}, true, nil
	}
	if pair, ok := tab.Two[name]; ok {
		firstTy := call.Args[0].Type()
		first := ir.NewCall(intrinsic.Declare(m, pair.First, []types.Type{firstTy}, argTypes(call)), call.Args...)
		retTy := callee.Sig.RetType
		second := ir.NewCall(
			intrinsic.Declare(m, pair.Second, []types.Type{retTy, firstTy}, []types.Type{firstTy}),
			first)
		takeName(second, call)
		return edit{insts: []ir.Instruction{first, second}, result: second}, true, nil
	}

	switch {
	case strings.HasPrefix(name, "__builtin_IB_itof"):
		repl := ir.NewSIToFP(call.Args[0], callee.Sig.RetType)
		takeName(repl, call)
		return edit{insts: []ir.Instruction{repl}, result: repl}, true, nil
	case strings.HasPrefix(name, "__builtin_IB_uitof"):
		repl := ir.NewUIToFP(call.Args[0], callee.Sig.RetType)
		takeName(repl, call)
		return edit{insts: []ir.Instruction{repl}, result: repl}, true, nil
	case strings.HasPrefix(name, "__builtin_IB_mul_rtz"):
		return roundToZero(m, call, ir.NewFMul(call.Args[0], call.Args[1]))
	case strings.HasPrefix(name, "__builtin_IB_add_rtz"):
		return roundToZero(m, call, ir.NewFAdd(call.Args[0], call.Args[1]))
	}
	return edit{}, false, nil
}

// roundToZero appends a genx.rndz call over op's result; the rounded value
// takes the original call's name.
func roundToZero(m *ir.Module, call *ir.InstCall, op ir.Instruction) (edit, bool, error) {
	opTy := call.Args[0].Type()
	fn := intrinsic.Declare(m, intrinsic.Rndz, []types.Type{opTy}, []types.Type{opTy})
	rnd := ir.NewCall(fn, op.(value.Value))
	takeName(rnd, call)
	return edit{insts: []ir.Instruction{op, rnd}, result: rnd}, true, nil
}

func argTypes(call *ir.InstCall) []types.Type {
	tys := make([]types.Type, len(call.Args))
	for i, arg := range call.Args {
		tys[i] = arg.Type()
	}
	return tys
}

func callName(call *ir.InstCall) string {
	if callee, ok := call.Callee.(*ir.Func); ok {
		return callee.Name()
	}
	return call.Name()
}
