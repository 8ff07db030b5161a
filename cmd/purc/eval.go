package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var showStats bool
	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Parse a JSON document into a value and print it",
		Long: `eval reads one JSON document from a file, or from stdin when the
argument is omitted or "-", and prints the resulting value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			inst := newRuntime(cmd)
			defer inst.Close()

			v, err := inst.MakeFromJSON(data)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", v.Stringify(), v.Kind())
			if showStats {
				printStats(os.Stdout, inst)
			}
			inst.Unref(v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showStats, "stats", false, "print allocator statistics after parsing")
	return cmd
}
