package bif

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"biflink/internal/bitlib"
	"biflink/internal/diag"
	"biflink/internal/lower"
	"biflink/internal/observ"
	"biflink/internal/repair"
)

// Options configures a pipeline run.
type Options struct {
	// Flags overrides the configuration globals written into the merged
	// module; nil selects DefaultFlags.
	Flags map[string]int64
	// Table overrides the builtin lowering table; nil selects
	// lower.DefaultTable.
	Table *lower.Table
	// Verify runs the call-signature invariant check after the pipeline.
	Verify bool
}

// Result reports what the pipeline did.
type Result struct {
	Materialized int
	Pruned       int
	Rewritten    int
}

type pipeline struct {
	main *ir.Module
	lib  *bitlib.Library
	rep  diag.Reporter

	materialized int
}

// Run executes the full import pipeline on the main module: demand-driven
// link, library prune + bulk materialize, module merge, flag
// initialization, signature repair, builtin lowering and linkage
// finalization. The main module is mutated in place; the library is
// consumed. Single-threaded; every failure is final.
func Run(main *ir.Module, lib *bitlib.Library, opts Options, rep diag.Reporter, tm *observ.Timer) (Result, error) {
	if rep == nil {
		rep = diag.Nop{}
	}
	if opts.Flags == nil {
		opts.Flags = DefaultFlags()
	}
	if opts.Table == nil {
		opts.Table = lower.DefaultTable()
	}
	p := &pipeline{main: main, lib: lib, rep: rep}
	var res Result

	phase := begin(tm, "demand-link")
	roots := make([]*ir.Func, 0, len(main.Funcs))
	for _, f := range main.Funcs {
		if len(f.Blocks) > 0 {
			roots = append(roots, f)
		}
	}
	for _, root := range roots {
		if err := p.explore(root); err != nil {
			return res, err
		}
	}
	res.Materialized = p.materialized
	end(tm, phase, fmt.Sprintf("%d bodies loaded", p.materialized))

	phase = begin(tm, "prune")
	pruned, err := lib.PruneUnused()
	if err != nil {
		return res, fmt.Errorf("prune library: %w", err)
	}
	res.Pruned = pruned
	end(tm, phase, fmt.Sprintf("%d functions dropped", pruned))

	phase = begin(tm, "materialize-all")
	if err := lib.MaterializeAll(); err != nil {
		diag.Error(rep, diag.LinkMaterializeFailure, "", err.Error())
		return res, fmt.Errorf("materialize library: %w", err)
	}
	end(tm, phase, "")

	phase = begin(tm, "link")
	if err := linkModules(main, lib.Module); err != nil {
		diag.Error(rep, diag.LinkMergeConflict, "", err.Error())
		return res, fmt.Errorf("link library: %w", err)
	}
	end(tm, phase, "")

	phase = begin(tm, "init-flags")
	initializeFlags(main, opts.Flags)
	end(tm, phase, "")

	phase = begin(tm, "signature-repair")
	if err := repair.Run(main, rep); err != nil {
		return res, err
	}
	end(tm, phase, "")

	phase = begin(tm, "lower")
	rewritten, err := lower.Rewrite(main, opts.Table, rep)
	if err != nil {
		return res, err
	}
	res.Rewritten = rewritten
	end(tm, phase, fmt.Sprintf("%d calls rewritten", rewritten))

	if opts.Verify {
		if err := VerifyCalls(main); err != nil {
			return res, fmt.Errorf("post-pipeline verify: %w", err)
		}
	}
	return res, nil
}

func begin(tm *observ.Timer, name string) int {
	if tm == nil {
		return -1
	}
	return tm.Begin(name)
}

func end(tm *observ.Timer, idx int, note string) {
	if tm != nil {
		tm.End(idx, note)
	}
}
