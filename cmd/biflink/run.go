package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"biflink/internal/bif"
	"biflink/internal/diag"
	"biflink/internal/driver"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <module.ll>",
	Short: "Import the builtin library into a module and lower builtins",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func init() {
	runCmd.Flags().StringP("library", "l", "", "builtin library path (.ll or .ll.lz4)")
	runCmd.Flags().StringP("output", "o", "", "output path (default: stdout)")
	runCmd.Flags().Bool("verify", false, "verify call signatures after the pipeline")
}

func runExecution(cmd *cobra.Command, args []string) error {
	libraryPath, err := cmd.Flags().GetString("library")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	verify, err := cmd.Flags().GetBool("verify")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	cfg, found, err := loadManifest(".")
	if err != nil {
		return err
	}
	flags := bif.DefaultFlags()
	if found {
		if libraryPath == "" {
			libraryPath = cfg.Library.Path
		}
		if outputPath == "" {
			outputPath = cfg.Output.Path
		}
		for name, val := range cfg.Flags {
			flags[name] = val
		}
	}
	if libraryPath == "" {
		return fmt.Errorf("no builtin library: pass --library or set [library] path in biflink.toml")
	}

	res, err := driver.Run(cmd.Context(), &driver.Request{
		InputPath:      args[0],
		LibraryPath:    libraryPath,
		OutputPath:     outputPath,
		Flags:          flags,
		Verify:         verify,
		MaxDiagnostics: maxDiagnostics,
	})
	printDiagnostics(res.Diags)
	if err != nil {
		return err
	}

	if outputPath == "" && res.Module != nil {
		fmt.Print(res.Module.String())
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "biflink: %d bodies imported, %d library functions pruned, %d calls lowered\n",
			res.Stats.Materialized, res.Stats.Pruned, res.Stats.Rewritten)
	}
	if timings {
		fmt.Fprint(os.Stderr, res.Timer.Summary())
	}
	return nil
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

func printDiagnostics(bag *diag.Bag) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		c := infoColor
		switch d.Severity {
		case diag.SevError:
			c = errorColor
		case diag.SevWarning:
			c = warningColor
		}
		c.Fprintln(os.Stderr, d.String())
	}
}
