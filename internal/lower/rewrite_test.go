package lower_test

import (
	"errors"
	"testing"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"biflink/internal/diag"
	"biflink/internal/lower"
)

// callsTo returns every call in f whose direct callee has the given name.
func callsTo(f *ir.Func, name string) []*ir.InstCall {
	var out []*ir.InstCall
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			if call, ok := inst.(*ir.InstCall); ok {
				if callee, ok := call.Callee.(*ir.Func); ok && callee.Name() == name {
					out = append(out, call)
				}
			}
		}
	}
	return out
}

func TestRewrite_OneMap(t *testing.T) {
	m := ir.NewModule()
	cos := m.NewFunc("__builtin_IB_native_cosf", types.Float, ir.NewParam("x", types.Float))
	k := m.NewFunc("kernel", types.Float, ir.NewParam("v", types.Float))
	entry := k.NewBlock("entry")
	call := entry.NewCall(cos, k.Params[0])
	entry.NewRet(call)

	n, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 rewritten call, got %d", n)
	}
	if left := callsTo(k, "__builtin_IB_native_cosf"); len(left) != 0 {
		t.Errorf("original builtin call survived rewriting")
	}
	repl := callsTo(k, "llvm.genx.cos.f32")
	if len(repl) != 1 {
		t.Fatalf("expected 1 call to llvm.genx.cos.f32, got %d", len(repl))
	}
	if len(repl[0].Args) != 1 || repl[0].Args[0] != k.Params[0] {
		t.Errorf("replacement call does not pass the original argument through")
	}
	ret, ok := entry.Term.(*ir.TermRet)
	if !ok {
		t.Fatalf("entry terminator is %T, want ret", entry.Term)
	}
	if ret.X != repl[0] {
		t.Errorf("uses of the original call were not redirected to the intrinsic")
	}
}

func TestRewrite_TwoMapChain(t *testing.T) {
	m := ir.NewModule()
	conv := m.NewFunc("__builtin_IB_dtoi32_rte", types.I32, ir.NewParam("x", types.Double))
	k := m.NewFunc("kernel", types.I32, ir.NewParam("v", types.Double))
	entry := k.NewBlock("entry")
	call := entry.NewCall(conv, k.Params[0])
	entry.NewRet(call)

	if _, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	first := callsTo(k, "llvm.genx.rnde.f64")
	second := callsTo(k, "llvm.genx.fptosi.sat.i32.f64")
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected rnde.f64 + fptosi.sat.i32.f64 chain, got %d and %d calls", len(first), len(second))
	}
	if first[0].Args[0] != k.Params[0] {
		t.Errorf("first intrinsic does not receive the original argument")
	}
	if len(second[0].Args) != 1 || second[0].Args[0] != first[0] {
		t.Errorf("second intrinsic's sole argument must be the first intrinsic's result")
	}
	ret := entry.Term.(*ir.TermRet)
	if ret.X != second[0] {
		t.Errorf("uses must be redirected to the second intrinsic's result")
	}
}

func TestRewrite_CtlzLowering(t *testing.T) {
	m := ir.NewModule()
	ctlz := m.NewFunc("llvm.ctlz.i32", types.I32,
		ir.NewParam("x", types.I32), ir.NewParam("zeroundef", types.I1))
	k := m.NewFunc("kernel", types.I32, ir.NewParam("v", types.I32))
	entry := k.NewBlock("entry")
	call := entry.NewCall(ctlz, k.Params[0], constant.False)
	entry.NewRet(call)

	if _, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	repl := callsTo(k, "llvm.genx.lzd.i32")
	if len(repl) != 1 {
		t.Fatalf("expected 1 call to llvm.genx.lzd.i32, got %d", len(repl))
	}
	if len(repl[0].Args) != 1 || repl[0].Args[0] != k.Params[0] {
		t.Errorf("lzd must take exactly the 32-bit source operand")
	}
}

func TestRewrite_CtlzRejectsNon32Bit(t *testing.T) {
	m := ir.NewModule()
	ctlz := m.NewFunc("llvm.ctlz.i64", types.I64,
		ir.NewParam("x", types.I64), ir.NewParam("zeroundef", types.I1))
	k := m.NewFunc("kernel", types.I64, ir.NewParam("v", types.I64))
	entry := k.NewBlock("entry")
	call := entry.NewCall(ctlz, k.Params[0], constant.False)
	entry.NewRet(call)

	bag := diag.NewBag(10)
	_, err := lower.Rewrite(m, lower.DefaultTable(), bag)
	if !errors.Is(err, lower.ErrCtlzWidth) {
		t.Fatalf("expected ErrCtlzWidth, got %v", err)
	}
	if !bag.HasErrors() {
		t.Errorf("expected an error diagnostic for the invalid operand width")
	}
}

func TestRewrite_LifetimeMarkersDeleted(t *testing.T) {
	m := ir.NewModule()
	start := m.NewFunc("llvm.lifetime.start.p0i8", types.Void,
		ir.NewParam("size", types.I64), ir.NewParam("ptr", types.NewPointer(types.I8)))
	k := m.NewFunc("kernel", types.Void)
	entry := k.NewBlock("entry")
	p := entry.NewAlloca(types.I8)
	entry.NewCall(start, constant.NewInt(types.I64, 1), p)
	entry.NewRet(nil)

	if _, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	for _, inst := range entry.Insts {
		if _, ok := inst.(*ir.InstCall); ok {
			t.Errorf("lifetime marker call should have been deleted")
		}
	}
}

func TestRewrite_ConversionPatterns(t *testing.T) {
	m := ir.NewModule()
	itof := m.NewFunc("__builtin_IB_itof_i32", types.Float, ir.NewParam("x", types.I32))
	uitof := m.NewFunc("__builtin_IB_uitof_i32", types.Float, ir.NewParam("x", types.I32))
	k := m.NewFunc("kernel", types.Float, ir.NewParam("v", types.I32))
	entry := k.NewBlock("entry")
	a := entry.NewCall(itof, k.Params[0])
	b := entry.NewCall(uitof, k.Params[0])
	sum := entry.NewFAdd(a, b)
	entry.NewRet(sum)

	if _, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	var si *ir.InstSIToFP
	var ui *ir.InstUIToFP
	for _, inst := range entry.Insts {
		switch inst := inst.(type) {
		case *ir.InstSIToFP:
			si = inst
		case *ir.InstUIToFP:
			ui = inst
		}
	}
	if si == nil || ui == nil {
		t.Fatalf("expected sitofp and uitofp replacements, insts: %v", entry.Insts)
	}
	if si.From != k.Params[0] || ui.From != k.Params[0] {
		t.Errorf("conversions must take the original first argument")
	}
	if sum.X != si || sum.Y != ui {
		t.Errorf("uses of the builtin calls were not redirected to the conversions")
	}
}

func TestRewrite_MulRtz(t *testing.T) {
	m := ir.NewModule()
	mul := m.NewFunc("__builtin_IB_mul_rtz_f32", types.Float,
		ir.NewParam("a", types.Float), ir.NewParam("b", types.Float))
	k := m.NewFunc("kernel", types.Float,
		ir.NewParam("a", types.Float), ir.NewParam("b", types.Float))
	entry := k.NewBlock("entry")
	call := entry.NewCall(mul, k.Params[0], k.Params[1])
	entry.NewRet(call)

	if _, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	var fmul *ir.InstFMul
	for _, inst := range entry.Insts {
		if i, ok := inst.(*ir.InstFMul); ok {
			fmul = i
		}
	}
	if fmul == nil {
		t.Fatalf("expected an fmul replacement")
	}
	if fmul.X != k.Params[0] || fmul.Y != k.Params[1] {
		t.Errorf("fmul must multiply the original operands")
	}
	rnd := callsTo(k, "llvm.genx.rndz.f32")
	if len(rnd) != 1 || rnd[0].Args[0] != fmul {
		t.Fatalf("the product must be rounded toward zero via genx.rndz")
	}
	if entry.Term.(*ir.TermRet).X != rnd[0] {
		t.Errorf("uses must see the rounded product")
	}
}

func TestRewrite_UnknownBuiltinUntouched(t *testing.T) {
	m := ir.NewModule()
	other := m.NewFunc("__builtin_IB_simd_shuffle", types.Float, ir.NewParam("x", types.Float))
	k := m.NewFunc("kernel", types.Float, ir.NewParam("v", types.Float))
	entry := k.NewBlock("entry")
	call := entry.NewCall(other, k.Params[0])
	entry.NewRet(call)

	n, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no rewrites, got %d", n)
	}
	if left := callsTo(k, "__builtin_IB_simd_shuffle"); len(left) != 1 || left[0] != call {
		t.Errorf("unmatched builtin call must be left for the linker")
	}
}

func TestRewrite_NameTakeover(t *testing.T) {
	m := ir.NewModule()
	conv := m.NewFunc("__builtin_IB_dtoi32_rte", types.I32, ir.NewParam("x", types.Double))
	mul := m.NewFunc("__builtin_IB_mul_rtz_f32", types.Float,
		ir.NewParam("a", types.Float), ir.NewParam("b", types.Float))
	cos := m.NewFunc("__builtin_IB_native_cosf", types.Float, ir.NewParam("x", types.Float))
	k := m.NewFunc("kernel", types.I32,
		ir.NewParam("d", types.Double), ir.NewParam("f", types.Float))
	entry := k.NewBlock("entry")
	named := entry.NewCall(conv, k.Params[0])
	named.SetName("r")
	chained := entry.NewCall(mul, k.Params[1], k.Params[1])
	chained.SetName("p")
	entry.NewCall(cos, chained)
	entry.NewRet(named)

	if _, err := lower.Rewrite(m, lower.DefaultTable(), diag.Nop{}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	// Only the result of each chain takes the original name; intermediates
	// stay unnamed so local identifiers remain unique.
	first := callsTo(k, "llvm.genx.rnde.f64")[0]
	second := callsTo(k, "llvm.genx.fptosi.sat.i32.f64")[0]
	if first.LocalName != "" {
		t.Errorf("intermediate intrinsic must stay unnamed, got %q", first.LocalName)
	}
	if second.Name() != "r" {
		t.Errorf("chain result name = %q, want r", second.Name())
	}
	rnd := callsTo(k, "llvm.genx.rndz.f32")[0]
	if rnd.Name() != "p" {
		t.Errorf("rounded product name = %q, want p", rnd.Name())
	}
	for _, inst := range entry.Insts {
		if fmul, ok := inst.(*ir.InstFMul); ok && fmul.LocalName != "" {
			t.Errorf("intermediate fmul must stay unnamed, got %q", fmul.LocalName)
		}
	}
	if repl := callsTo(k, "llvm.genx.cos.f32")[0]; repl.LocalName != "" {
		t.Errorf("replacement for an unnamed call must stay unnamed, got %q", repl.LocalName)
	}

	// The transformed module must still print as valid IR.
	if _, err := asm.ParseString("lowered.ll", m.String()); err != nil {
		t.Fatalf("lowered module does not re-parse: %v", err)
	}
}

func TestFinalizeLinkage_Idempotent(t *testing.T) {
	m := ir.NewModule()
	g := m.NewGlobalDef("flag", constant.NewInt(types.I32, 0))
	decl := m.NewFunc("external_helper", types.Void)
	intr := m.NewFunc("llvm.genx.rndz.f32", types.Float, ir.NewParam("x", types.Float))
	def := m.NewFunc("kernel", types.Void)
	def.NewBlock("entry").NewRet(nil)
	exported := m.NewFunc("entrypoint", types.Void)
	exported.NewBlock("entry").NewRet(nil)
	exported.DLLStorageClass = enum.DLLStorageClassDLLExport

	lower.FinalizeLinkage(m)
	if g.Linkage != enum.LinkageInternal {
		t.Errorf("defined global must become internal")
	}
	if def.Linkage != enum.LinkageInternal {
		t.Errorf("defined function must become internal")
	}
	if decl.Linkage == enum.LinkageInternal {
		t.Errorf("declaration must keep its linkage")
	}
	if intr.Linkage == enum.LinkageInternal {
		t.Errorf("intrinsic declaration must keep its linkage")
	}
	if exported.Linkage == enum.LinkageInternal {
		t.Errorf("dllexport function must keep its linkage")
	}

	before := []enum.Linkage{g.Linkage, decl.Linkage, intr.Linkage, def.Linkage, exported.Linkage}
	lower.FinalizeLinkage(m)
	after := []enum.Linkage{g.Linkage, decl.Linkage, intr.Linkage, def.Linkage, exported.Linkage}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("linkage assignment %d changed on second run: %v -> %v", i, before[i], after[i])
		}
	}
}
