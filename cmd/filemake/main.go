// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	piol "github.com/exseisdat/piol"
)

var (
	outPath  string
	ns       int
	nt       int64
	memMiB   int64
	interval float64
	linear   bool
	random   bool
)

func run(cmd *cobra.Command, args []string) {
	comm, errlog := piol.SingleRankContext()

	out, err := piol.OpenOutputFile(comm, errlog, outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out.SetNS(ns)
	out.SetSampleInterval(interval)
	out.SetText("Test file\n")

	maxPerBatch := piol.MaxTracesPerBatch(memMiB*1024*1024, 0, ns)
	offset := int64(0)
	for offset < nt {
		count := maxPerBatch
		if count > nt-offset {
			count = nt - offset
		}
		samples := make([]float32, count*int64(ns))
		fillSamples(samples, offset, ns, linear, random)
		out.WriteTrace(offset, int(count), samples, nil, 0)
		offset += count
	}

	if err := out.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	errlog.AssertOk()
}

// fillSamples populates a freshly allocated count*ns buffer: -l fills a
// deterministic linear ramp per trace (useful for golden-file tests), -r
// fills pseudo-random noise, and the default leaves every sample at zero.
func fillSamples(samples []float32, offset int64, ns int, linear, random bool) {
	if !linear && !random {
		return
	}
	rng := rand.New(rand.NewSource(offset + 1))
	for i := range samples {
		switch {
		case random:
			samples[i] = rng.Float32()*2 - 1
		case linear:
			samples[i] = float32(i % ns)
		}
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "filemake",
		Short: "Produces a synthetic SEG-Y file",
		Long:  "filemake produces a synthetic SEG-Y file of a given trace count and sample count",
		Run:   run,
	}

	rootCmd.Flags().StringVarP(&outPath, "o", "o", "", "output path (required)")
	rootCmd.Flags().IntVarP(&ns, "s", "s", 1000, "samples per trace")
	rootCmd.Flags().Int64VarP(&nt, "t", "t", 100, "trace count")
	rootCmd.Flags().Int64VarP(&memMiB, "m", "m", 64, "memory budget in MiB")
	rootCmd.Flags().Float64VarP(&interval, "i", "i", 0.004, "sample interval in seconds")
	rootCmd.Flags().BoolVarP(&linear, "l", "l", false, "fill samples with a deterministic linear ramp")
	rootCmd.Flags().BoolVarP(&random, "r", "r", false, "fill samples with pseudo-random noise")
	rootCmd.MarkFlagRequired("o")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
