package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // set via -ldflags at build time

func main() {
	root := &cobra.Command{
		Use:   "purc",
		Short: "Data runtime shell",
		Long: `purc is a small shell around the value runtime: it parses JSON into
runtime values, renders them back, and reports allocator statistics.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().Bool("debug", false, "enable debug logging for every category")
	root.PersistentFlags().StringSlice("log", nil, "log categories to enable (memory, variant, set, ...)")

	root.AddCommand(newReplCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("purc %s\n", version)
		},
	}
}
