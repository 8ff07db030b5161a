package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	purc "github.com/hanxinle/PurC"
)

func newRuntime(cmd *cobra.Command) *purc.Instance {
	cfg := purc.DefaultConfig()
	cfg.Debug, _ = cmd.Flags().GetBool("debug")
	inst := purc.New(cfg)
	cats, _ := cmd.Flags().GetStringSlice("log")
	for _, c := range cats {
		inst.Logger().EnableCategory(purc.LogCategory(c))
	}
	return inst
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively parse and inspect values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("repl requires a terminal; pipe input through 'purc eval -' instead")
			}

			inst := newRuntime(cmd)
			defer inst.Close()

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)
			histPath := historyPath()
			if histPath != "" {
				if f, err := os.Open(histPath); err == nil {
					line.ReadHistory(f)
					f.Close()
				}
			}

			fmt.Printf("purc %s — enter JSON, :stats, or :quit\n", version)
			for {
				input, err := line.Prompt("purc> ")
				if err == liner.ErrPromptAborted || err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}
				line.AppendHistory(input)

				if strings.HasPrefix(input, ":") {
					if done := runReplCommand(inst, input); done {
						break
					}
					continue
				}

				v, err := inst.MakeFromJSON([]byte(input))
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				fmt.Printf("%s (%s)\n", v.Stringify(), v.Kind())
				inst.Unref(v)
			}

			if histPath != "" {
				if f, err := os.Create(histPath); err == nil {
					line.WriteHistory(f)
					f.Close()
				}
			}
			return nil
		},
	}
}

// runReplCommand handles colon commands, reporting true on quit.
func runReplCommand(inst *purc.Instance, input string) bool {
	switch input {
	case ":quit", ":q":
		return true
	case ":stats":
		printStats(os.Stdout, inst)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", input)
	}
	return false
}

func printStats(w io.Writer, inst *purc.Instance) {
	stat := inst.UsageStat()
	fmt.Fprintf(w, "values alive: %d, payload bytes: %d, pooled: %d\n",
		stat.NrTotalValues, stat.SzTotalMem, stat.NrReserved)
	for k := purc.KindUndefined; k.String() != "unknown"; k++ {
		if stat.NrValues[k] == 0 && stat.SzMem[k] == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-12s %6d values %8d bytes\n", k, stat.NrValues[k], stat.SzMem[k])
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".purc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
