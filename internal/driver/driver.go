// Package driver orchestrates one biflink invocation: load the kernel
// module and the builtin library, run the import pipeline, emit the
// result.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"golang.org/x/sync/errgroup"

	"biflink/internal/bif"
	"biflink/internal/bitlib"
	"biflink/internal/diag"
	"biflink/internal/observ"
)

// Request configures a run.
type Request struct {
	// InputPath is the kernel module (textual IR).
	InputPath string
	// LibraryPath is the builtin library (.ll, optionally .ll.lz4).
	LibraryPath string
	// OutputPath receives the transformed module; empty means the module
	// is only returned in the Result.
	OutputPath string
	// Flags overrides the default flag-global initializers.
	Flags map[string]int64
	// Verify runs the post-pipeline call-signature check.
	Verify bool
	// MaxDiagnostics caps the accumulated diagnostics.
	MaxDiagnostics int
}

// Result carries the transformed module and run metadata.
type Result struct {
	Module *ir.Module
	Stats  bif.Result
	Timer  *observ.Timer
	Diags  *diag.Bag
}

// Run executes a full biflink invocation. The two inputs are loaded in
// parallel; the pipeline itself is single-threaded.
func Run(ctx context.Context, req *Request) (Result, error) {
	res := Result{
		Timer: observ.NewTimer(),
		Diags: diag.NewBag(req.MaxDiagnostics),
	}
	if req.InputPath == "" {
		return res, fmt.Errorf("missing input module path")
	}
	if req.LibraryPath == "" {
		return res, fmt.Errorf("missing builtin library path")
	}

	phase := res.Timer.Begin("load")
	var main *ir.Module
	var lib *bitlib.Library
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := asm.ParseFile(req.InputPath)
		if err != nil {
			return fmt.Errorf("parse %s: %w", req.InputPath, err)
		}
		main = m
		return nil
	})
	g.Go(func() error {
		l, err := bitlib.Load(req.LibraryPath)
		if err != nil {
			return err
		}
		lib = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, err
	}
	res.Timer.End(phase, fmt.Sprintf("%s + %s", req.InputPath, req.LibraryPath))

	if err := ctx.Err(); err != nil {
		return res, err
	}

	stats, err := bif.Run(main, lib, bif.Options{
		Flags:  req.Flags,
		Verify: req.Verify,
	}, res.Diags, res.Timer)
	res.Module = main
	res.Stats = stats
	if err != nil {
		return res, err
	}

	if req.OutputPath != "" {
		phase = res.Timer.Begin("emit")
		if err := os.WriteFile(req.OutputPath, []byte(main.String()), 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", req.OutputPath, err)
		}
		res.Timer.End(phase, req.OutputPath)
	}
	return res, nil
}
