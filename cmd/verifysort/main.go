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
	inPath       string
	sortTypeFlag int
)

func run(cmd *cobra.Command, args []string) {
	comm, errlog := piol.SingleRankContext()

	in, err := piol.OpenInputFile(comm, errlog, inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer in.Close()

	less := piol.LessFor(piol.SortType(sortTypeFlag))
	decomp := piol.Decomposition{Offset: 0, Size: in.Reel.NT}
	if piol.CheckOrder(comm, in, decomp, less) {
		fmt.Println("Success")
	} else {
		fmt.Println("Failure")
	}
	os.Exit(0)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "verifysort",
		Short: "Verifies a SEG-Y file's traces are ordered by a given sort type",
		Run:   run,
	}

	rootCmd.Flags().StringVarP(&inPath, "i", "i", "", "input path (required)")
	rootCmd.Flags().IntVarP(&sortTypeFlag, "t", "t", 0, "sort type index")
	rootCmd.MarkFlagRequired("i")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
