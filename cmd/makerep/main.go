// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	piol "github.com/exseisdat/piol"
)

var (
	inPath  string
	outPath string
	variant string
	rep     int64
)

// copyStandard drives the copy through ReadMetadataBalanced's batched,
// collective-balance-aware loop, the intended way to move a whole file.
func copyStandard(in *piol.InputFile, out *piol.OutputFile, rules *piol.RuleSet, memBudget int64, nt int64) {
	decomp := piol.Decomposition{Offset: 0, Size: nt}
	for r := int64(0); r < rep; r++ {
		base := r * nt
		in.ReadMetadataBalanced(decomp, rules, memBudget, func(table *piol.TraceMetadata, globalOffset int64, count int) {
			samples := make([]float32, int64(count)*int64(in.Reel.NS))
			in.ReadTrace(globalOffset, count, samples, nil, 0)
			out.WriteTrace(base+globalOffset, count, samples, table, 0)
		})
	}
}

// copyNaive1 issues one single-trace read/write pair per trace, the
// simplest (and slowest) possible use of the engine.
func copyNaive1(in *piol.InputFile, out *piol.OutputFile, rules *piol.RuleSet, nt int64) {
	table := piol.NewTraceMetadata(rules, 1)
	samples := make([]float32, in.Reel.NS)
	for r := int64(0); r < rep; r++ {
		base := r * nt
		for i := int64(0); i < nt; i++ {
			in.ReadTrace(i, 1, samples, table, 0)
			out.WriteTrace(base+i, 1, samples, table, 0)
		}
	}
}

// copyNaive2 reads the whole file once, then issues one whole-file write
// per repetition, with no memory-budget batching at all.
func copyNaive2(in *piol.InputFile, out *piol.OutputFile, rules *piol.RuleSet, nt int64) {
	table := piol.NewTraceMetadata(rules, int(nt))
	samples := make([]float32, nt*int64(in.Reel.NS))
	in.ReadTrace(0, int(nt), samples, table, 0)
	for r := int64(0); r < rep; r++ {
		out.WriteTrace(r*nt, int(nt), samples, table, 0)
	}
}

func run(cmd *cobra.Command, args []string) {
	comm, errlog := piol.SingleRankContext()

	in, err := piol.OpenInputFile(comm, errlog, inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out, err := piol.OpenOutputFile(comm, errlog, outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out.SetNS(in.Reel.NS)
	out.SetSampleInterval(in.Reel.SampleInterval)
	out.SetText(string(in.Reel.Text))

	rules := piol.NewRuleSet(piol.CopyKey)
	nt := in.Reel.NT
	const memBudget = 64 * 1024 * 1024

	switch variant {
	case "naive1":
		copyNaive1(in, out, rules, nt)
	case "naive2":
		copyNaive2(in, out, rules, nt)
	default:
		copyStandard(in, out, rules, memBudget, nt)
	}

	in.Close()
	if err := out.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	errlog.AssertOk()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "makerep",
		Short: "Copies a SEG-Y file's payload r times into a new file",
		Run:   run,
	}

	rootCmd.Flags().StringVarP(&inPath, "i", "i", "", "input path (required)")
	rootCmd.Flags().StringVarP(&outPath, "o", "o", "", "output path (required)")
	rootCmd.Flags().StringVarP(&variant, "v", "v", "standard", "copy strategy: standard, naive1 or naive2")
	rootCmd.Flags().Int64VarP(&rep, "r", "r", 1, "number of repetitions")
	rootCmd.MarkFlagRequired("i")
	rootCmd.MarkFlagRequired("o")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
