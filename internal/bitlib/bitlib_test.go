package bitlib_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/pierrec/lz4/v4"

	"biflink/internal/bitlib"
	"biflink/internal/irutil"
)

const libText = `declare float @llvm.genx.cos.f32(float)

@__FlushDenormals = global i32 0

define float @helper(float %x) {
entry:
	%r = call float @llvm.genx.cos.f32(float %x)
	ret float %r
}

define internal float @square(float %x) {
entry:
	%r = fmul float %x, %x
	ret float %r
}

define float @wrapper(float %x) {
entry:
	%h = call float @helper(float %x)
	%s = call float @square(float %h)
	ret float %s
}
`

func parseLib(t *testing.T) *bitlib.Library {
	t.Helper()
	lib, err := bitlib.Parse("builtins.ll", libText)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return lib
}

func TestParse_Skeleton(t *testing.T) {
	lib := parseLib(t)

	for _, name := range []string{"helper", "square", "wrapper"} {
		if !lib.HasBody(name) {
			t.Errorf("%s must have a serialized body", name)
		}
		if !lib.IsMaterializable(name) {
			t.Errorf("%s must be pending before materialization", name)
		}
		f := irutil.FindFunc(lib.Module, name)
		if f == nil {
			t.Fatalf("%s missing from skeleton", name)
		}
		if len(f.Blocks) != 0 {
			t.Errorf("%s must be a declaration in the skeleton", name)
		}
		if lib.Lookup(name) != f {
			t.Errorf("Lookup(%s) must resolve a pending definition", name)
		}
	}
	if lib.HasBody("llvm.genx.cos.f32") {
		t.Errorf("a plain declaration must have no body")
	}
	if lib.Lookup("llvm.genx.cos.f32") != nil {
		t.Errorf("Lookup must resolve declaration-only functions to nil")
	}
	if irutil.FindGlobal(lib.Module, "__FlushDenormals") == nil {
		t.Errorf("header globals must survive into the skeleton")
	}
	if n := lib.NumPending(); n != 3 {
		t.Errorf("NumPending = %d, want 3", n)
	}
}

func TestMaterialize(t *testing.T) {
	lib := parseLib(t)

	if err := lib.Materialize("wrapper"); err != nil {
		t.Fatalf("Materialize(wrapper) failed: %v", err)
	}
	wrapper := irutil.FindFunc(lib.Module, "wrapper")
	if len(wrapper.Blocks) == 0 {
		t.Fatalf("wrapper must have a body after materialization")
	}
	helper := irutil.FindFunc(lib.Module, "helper")
	square := irutil.FindFunc(lib.Module, "square")
	var callees []*ir.Func
	for _, inst := range wrapper.Blocks[0].Insts {
		if call, ok := inst.(*ir.InstCall); ok {
			callees = append(callees, call.Callee.(*ir.Func))
		}
	}
	if len(callees) != 2 || callees[0] != helper || callees[1] != square {
		t.Errorf("materialized calls must be retargeted onto the skeleton functions")
	}
	if lib.IsMaterializable("wrapper") {
		t.Errorf("wrapper must no longer be pending")
	}
	if err := lib.Materialize("wrapper"); err != nil {
		t.Errorf("re-materializing must be a no-op, got %v", err)
	}
	if n := lib.NumMaterialized(); n != 1 {
		t.Errorf("NumMaterialized = %d, want 1", n)
	}

	err := lib.Materialize("missing")
	if !errors.Is(err, bitlib.ErrNoBody) {
		t.Errorf("materializing an unknown name: got %v, want ErrNoBody", err)
	}
}

func TestMaterialize_RestoresLinkage(t *testing.T) {
	lib := parseLib(t)
	square := irutil.FindFunc(lib.Module, "square")
	if square.Linkage == enum.LinkageInternal {
		t.Fatalf("skeleton declaration must not carry internal linkage")
	}
	if err := lib.Materialize("square"); err != nil {
		t.Fatalf("Materialize(square) failed: %v", err)
	}
	if square.Linkage != enum.LinkageInternal {
		t.Errorf("internal linkage must be restored from the body")
	}
}

func TestPruneUnused(t *testing.T) {
	lib := parseLib(t)
	if err := lib.Materialize("wrapper"); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	n, err := lib.PruneUnused()
	if err != nil {
		t.Fatalf("PruneUnused failed: %v", err)
	}
	// helper and square are used by wrapper's body; only the plain
	// intrinsic declaration is unreferenced.
	if n != 1 {
		t.Errorf("pruned %d functions, want 1", n)
	}
	if irutil.FindFunc(lib.Module, "llvm.genx.cos.f32") != nil {
		t.Errorf("unused declaration must be pruned")
	}
	for _, name := range []string{"helper", "square", "wrapper"} {
		if irutil.FindFunc(lib.Module, name) == nil {
			t.Errorf("%s must survive pruning", name)
		}
	}
}

func TestMaterializeAll(t *testing.T) {
	lib := parseLib(t)
	if err := lib.MaterializeAll(); err != nil {
		t.Fatalf("MaterializeAll failed: %v", err)
	}
	if n := lib.NumPending(); n != 0 {
		t.Errorf("NumPending = %d after MaterializeAll, want 0", n)
	}
	for _, f := range lib.Module.Funcs {
		if lib.HasBody(f.Name()) && len(f.Blocks) == 0 {
			t.Errorf("%s still has no body", f.Name())
		}
	}
}

func TestBuildIndex(t *testing.T) {
	lib := parseLib(t)
	idx := lib.BuildIndex()
	want := map[string][]string{
		"helper":  {"llvm.genx.cos.f32"},
		"square":  nil,
		"wrapper": {"helper", "square"},
	}
	for name, callees := range want {
		if got := idx.Callees[name]; !reflect.DeepEqual(got, callees) {
			t.Errorf("Callees[%s] = %v, want %v", name, got, callees)
		}
	}
}

func TestIndexSidecar_RoundTrip(t *testing.T) {
	lib := parseLib(t)
	dir := t.TempDir()
	path := bitlib.IndexPath(filepath.Join(dir, "builtins.ll"))

	if _, ok, err := lib.LoadIndex(path); err != nil || ok {
		t.Fatalf("missing sidecar: ok=%v err=%v, want absent without error", ok, err)
	}

	idx, err := lib.CalleeIndex(path)
	if err != nil {
		t.Fatalf("CalleeIndex failed: %v", err)
	}
	loaded, ok, err := lib.LoadIndex(path)
	if err != nil || !ok {
		t.Fatalf("reloading the saved sidecar: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(loaded.Callees, idx.Callees) {
		t.Errorf("sidecar round trip changed the call graph")
	}

	// A sidecar written for different library content is stale.
	other, err := bitlib.Parse("other.ll", libText+"\n; trailing comment\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok, err := other.LoadIndex(path); err != nil || ok {
		t.Errorf("stale sidecar: ok=%v err=%v, want rejected without error", ok, err)
	}
}

func TestLoad_LZ4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "builtins.ll.lz4")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := lz4.NewWriter(f)
	if _, err := zw.Write([]byte(libText)); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lib, err := bitlib.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !lib.HasBody("wrapper") {
		t.Errorf("compressed library must parse like the plain one")
	}
}
