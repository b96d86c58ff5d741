package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"biflink/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the biflink version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}
