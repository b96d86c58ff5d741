package bif

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"biflink/internal/irutil"
)

// linkModules merges the (fully materialized) library module into the main
// module with one-definition semantics: a library definition satisfies a
// main-module declaration of the same name; when both modules define a
// symbol, the main module's definition wins. The library module is
// unusable afterwards.
func linkModules(main, lib *ir.Module) error {
	// Decide the fate of every library function first; structural edits
	// happen after the scan.
	type merge struct {
		libFn  *ir.Func
		mainFn *ir.Func // nil: plain move
	}
	var moves []*ir.Func
	var resolves []merge // library definition replaces main declaration
	var drops []merge    // main definition wins over library copy

	for _, f := range lib.Funcs {
		mainFn := irutil.FindFunc(main, f.Name())
		switch {
		case mainFn == nil:
			moves = append(moves, f)
		case len(mainFn.Blocks) == 0 && len(f.Blocks) > 0:
			resolves = append(resolves, merge{libFn: f, mainFn: mainFn})
		default:
			drops = append(drops, merge{libFn: f, mainFn: mainFn})
		}
	}

	for _, f := range moves {
		f.Parent = main
		main.Funcs = append(main.Funcs, f)
	}
	for _, mg := range resolves {
		mg.libFn.Parent = main
		main.Funcs = append(main.Funcs, mg.libFn)
		if err := irutil.ReplaceAllUses(main, mg.mainFn, mg.libFn); err != nil {
			return fmt.Errorf("link %s: %w", mg.libFn.Name(), err)
		}
		irutil.RemoveFunc(main, mg.mainFn)
	}
	for _, mg := range drops {
		// Bodies moved above may still reference the library's copy.
		if err := irutil.ReplaceAllUses(main, mg.libFn, mg.mainFn); err != nil {
			return fmt.Errorf("link %s: %w", mg.libFn.Name(), err)
		}
	}

	var globalMoves []*ir.Global
	type gmerge struct{ libG, mainG *ir.Global }
	var gResolves, gDrops []gmerge
	for _, g := range lib.Globals {
		mainG := irutil.FindGlobal(main, g.Name())
		switch {
		case mainG == nil:
			globalMoves = append(globalMoves, g)
		case mainG.Init == nil && g.Init != nil:
			gResolves = append(gResolves, gmerge{libG: g, mainG: mainG})
		default:
			gDrops = append(gDrops, gmerge{libG: g, mainG: mainG})
		}
	}
	for _, g := range globalMoves {
		main.Globals = append(main.Globals, g)
	}
	for _, mg := range gResolves {
		main.Globals = append(main.Globals, mg.libG)
		if err := irutil.ReplaceAllUses(main, mg.mainG, mg.libG); err != nil {
			return fmt.Errorf("link global %s: %w", mg.libG.Name(), err)
		}
		irutil.RemoveGlobal(main, mg.mainG)
	}
	for _, mg := range gDrops {
		if err := irutil.ReplaceAllUses(main, mg.libG, mg.mainG); err != nil {
			return fmt.Errorf("link global %s: %w", mg.libG.Name(), err)
		}
	}

	// Carry over type definitions the main module does not have.
	names := make(map[string]bool, len(main.TypeDefs))
	for _, td := range main.TypeDefs {
		names[td.Name()] = true
	}
	for _, td := range lib.TypeDefs {
		if !names[td.Name()] {
			main.TypeDefs = append(main.TypeDefs, td)
		}
	}

	lib.Funcs = nil
	lib.Globals = nil
	return nil
}
