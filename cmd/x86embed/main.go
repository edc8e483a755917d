// Command x86embed is a debug driver for the symbolic embedder: it reads
// an IL fragment (JSON, see pkg/il.DecodeProgram) or embeds a small
// built-in demo, runs it against the x86-64+AVX architecture, and prints
// the resulting assertions, optionally persisting them via pkg/report as
// JSON (--json) or a resumable checkpoint (--checkpoint). It is not the
// product driver — a real disassembler-fed pipeline would call pkg/embed,
// pkg/extract and pkg/report directly — just a way to exercise the
// embedder from the command line.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/oisee/x86-symbolic-embedder/pkg/arch/x86_64"
	"github.com/oisee/x86-symbolic-embedder/pkg/batch"
	"github.com/oisee/x86-symbolic-embedder/pkg/extract"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
	"github.com/oisee/x86-symbolic-embedder/pkg/report"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "x86embed",
		Short: "Symbolic embedder for x86-64+AVX IL fragments",
	}

	var verbose bool
	var jsonOut string
	var checkpointOut string

	embedCmd := &cobra.Command{
		Use:   "embed [fragment.json]...",
		Short: "Embed one or more IL fragments and print their assertions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var fragments []batch.Fragment
			if len(args) == 0 {
				fragments = append(fragments, demoFragment())
			} else {
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					stmts, err := il.DecodeProgram(data)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fragments = append(fragments, batch.Fragment{Name: path, Stmts: stmts})
				}
			}

			pool := batch.NewPool(x86_64.Arch{}, 0)
			results := pool.Run(fragments, verbose)

			table := report.NewTable()
			failures := 0
			for _, r := range results {
				fmt.Printf("== %s ==\n", r.Name)
				if r.Err != nil {
					fmt.Printf("  error: %v\n", r.Err)
					failures++
				} else {
					printAssertions(r.Assertions)
				}
				table.Add(report.FromResult(r))
			}

			if jsonOut != "" {
				if err := writeJSONReport(jsonOut, table); err != nil {
					return fmt.Errorf("writing %s: %w", jsonOut, err)
				}
			}
			if checkpointOut != "" {
				ckpt := &report.Checkpoint{Reports: table.Reports(), Completed: len(results)}
				if err := report.SaveCheckpoint(checkpointOut, ckpt); err != nil {
					return fmt.Errorf("writing checkpoint %s: %w", checkpointOut, err)
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d fragment(s) failed", failures, len(results))
			}
			return nil
		},
	}
	embedCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print progress while embedding")
	embedCmd.Flags().StringVar(&jsonOut, "json", "", "Write all fragment reports to this path as JSON")
	embedCmd.Flags().StringVar(&checkpointOut, "checkpoint", "", "Write a resumable gob checkpoint to this path")

	rootCmd.AddCommand(embedCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printAssertions(asserts []extract.Assertion) {
	for _, a := range asserts {
		fmt.Printf("  %s : %s == %s\n", a.Name, a.Sort, term.Render(a.Value))
	}
}

func writeJSONReport(path string, table *report.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteJSON(f, table.Reports())
}

// demoFragment embeds "add rsp, 8" (spec.md §8's first worked example):
// RSP := RSP + 8.
func demoFragment() batch.Fragment {
	rsp := il.Var{Name: "RSP", Type: il.Imm{Size: 64}}
	eight := &il.Int{Value: big.NewInt(8), Size: 64}
	stmts := []il.Stmt{
		&il.Move{
			Var:  rsp,
			Expr: &il.BinExpr{Op: il.PLUS, LHS: &il.Var{Name: "RSP", Type: il.Imm{Size: 64}}, RHS: eight},
		},
	}
	return batch.Fragment{Name: "add rsp, 8", Stmts: stmts}
}
