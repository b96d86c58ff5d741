package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"biflink/internal/bitlib"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <library.ll> [function]",
	Short: "Show the builtin library call graph without loading any bodies",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  inspectExecution,
}

func init() {
	inspectCmd.Flags().Bool("no-index-cache", false, "do not read or write the library index sidecar")
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	noIndexCache, err := cmd.Flags().GetBool("no-index-cache")
	if err != nil {
		return err
	}

	lib, err := bitlib.Load(args[0])
	if err != nil {
		return err
	}
	cachePath := ""
	if !noIndexCache {
		cachePath = bitlib.IndexPath(args[0])
	}
	idx, err := lib.CalleeIndex(cachePath)
	if err != nil {
		return err
	}

	if len(args) == 2 {
		callees, ok := idx.Callees[args[1]]
		if !ok {
			return fmt.Errorf("%s: no body for %s", args[0], args[1])
		}
		for _, callee := range callees {
			fmt.Println(callee)
		}
		return nil
	}

	names := make([]string, 0, len(idx.Callees))
	for name := range idx.Callees {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s (%d callees)\n", name, len(idx.Callees[name]))
	}
	return nil
}
