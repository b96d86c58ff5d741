package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"biflink/internal/intrinsic"
)

// FinalizeLinkage demotes every defined global and every non-intrinsic,
// defined, non-exported function to internal linkage so that downstream
// dead-code elimination and inlining can work across the merged module.
// Idempotent.
func FinalizeLinkage(m *ir.Module) {
	for _, g := range m.Globals {
		if g.Init != nil {
			g.Linkage = enum.LinkageInternal
		}
	}
	for _, f := range m.Funcs {
		if intrinsic.IsReserved(f.Name()) {
			continue
		}
		if len(f.Blocks) == 0 {
			continue
		}
		if f.DLLStorageClass == enum.DLLStorageClassDLLExport {
			continue
		}
		f.Linkage = enum.LinkageInternal
	}
}
