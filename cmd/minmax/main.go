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
)

func run(cmd *cobra.Command, args []string) {
	comm, errlog := piol.SingleRankContext()

	in, err := piol.OpenInputFile(comm, errlog, inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rules := piol.NewRuleSet(piol.SourceX, piol.SourceY, piol.ReceiverX, piol.ReceiverY, piol.CDPX, piol.CDPY, piol.GTN)
	nt := int(in.Reel.NT)
	table := piol.NewTraceMetadata(rules, nt)
	in.ReadMetadata(0, nt, table, 0)

	pairs := []struct {
		x, y piol.MetadataKey
	}{
		{piol.SourceX, piol.SourceY},
		{piol.ReceiverX, piol.ReceiverY},
		{piol.CDPX, piol.CDPY},
	}

	witnessTn := make([]int64, 0, 6)
	for _, p := range pairs {
		res := piol.GetMinMax(comm, 0, nt,
			func(row int) float64 { return table.GetFloatingPoint(row, p.x) },
			func(row int) float64 { return table.GetFloatingPoint(row, p.y) })
		witnessTn = append(witnessTn, res.MinX.Index, res.MaxX.Index)
	}

	out, err := piol.OpenOutputFile(comm, errlog, outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out.SetNS(in.Reel.NS)
	out.SetSampleInterval(in.Reel.SampleInterval)
	out.SetText(string(in.Reel.Text))

	samples := make([]float32, int64(len(witnessTn))*int64(in.Reel.NS))
	witnessTable := piol.NewTraceMetadata(rules, len(witnessTn))
	in.ReadNonMonotonic(witnessTn, samples, witnessTable, 0)
	out.WriteTraceNonContiguous(sequential(len(witnessTn)), samples, witnessTable, 0)

	in.Close()
	if err := out.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	errlog.AssertOk()
}

func sequential(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "minmax",
		Short: "Writes the six source/receiver/cmp extreme-coordinate witness traces",
		Run:   run,
	}

	rootCmd.Flags().StringVarP(&inPath, "i", "i", "", "input path (required)")
	rootCmd.Flags().StringVarP(&outPath, "o", "o", "", "output path (required)")
	rootCmd.MarkFlagRequired("i")
	rootCmd.MarkFlagRequired("o")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
