// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	piol "github.com/exseisdat/piol"
)

var (
	inPath    string
	outPath   string
	keysFlag  string
	stride    int64
	maxMemory int64
)

// csvFieldWidth is the fixed on-disk width (including the trailing comma
// or newline) of every numeric field, so a row's byte offset is computable
// from its index alone, per §6's extract-metadata contract.
const csvFieldWidth = 20

func formatRow(values []float64) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = fmt.Sprintf("%*.6f", csvFieldWidth-1, v)
	}
	return strings.Join(fields, ",") + "\n"
}

func run(cmd *cobra.Command, args []string) {
	comm, errlog := piol.SingleRankContext()

	keyNames := strings.Split(keysFlag, ",")
	keys := make([]piol.MetadataKey, 0, len(keyNames))
	for _, name := range keyNames {
		k, ok := piol.MetadataKeyByName(strings.TrimSpace(name))
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown metadata key %q\n", name)
			os.Exit(1)
		}
		keys = append(keys, k)
	}
	rules := piol.NewRuleSet(keys...)

	in, err := piol.OpenInputFile(comm, errlog, inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer in.Close()

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	header := "# " + strings.Join(keyNames, ", ") + "\n"
	if _, err := f.WriteString(header); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	headerLen := int64(len(header))
	rowWidth := int64(len(keys)) * csvFieldWidth

	if stride < 1 {
		stride = 1
	}
	nt := in.Reel.NT
	rowCount := (nt + stride - 1) / stride
	memBudget := maxMemory * 1024 * 1024
	if memBudget <= 0 {
		memBudget = 64 * 1024 * 1024
	}
	maxPerBatch := piol.MaxTracesPerBatch(memBudget, rules.MemoryUsagePerHeader(), in.Reel.NS)

	for row := int64(0); row < rowCount; row += maxPerBatch {
		n := maxPerBatch
		if n > rowCount-row {
			n = rowCount - row
		}
		offsets := make([]int64, n)
		for i := range offsets {
			offsets[i] = (row + int64(i)) * stride
		}
		table := piol.NewTraceMetadata(rules, int(n))
		in.ReadMetadataNonContiguous(offsets, table, 0)
		for i := int64(0); i < n; i++ {
			values := make([]float64, len(keys))
			for j, k := range keys {
				values[j] = table.GetAsFloat(int(i), k)
			}
			text := formatRow(values)
			f.WriteAt([]byte(text), headerLen+(row+i)*rowWidth)
		}
	}

	errlog.AssertOk()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "extract-metadata",
		Short: "Extracts selected trace-header fields to a fixed-width CSV",
		Run:   run,
	}

	rootCmd.Flags().StringVarP(&inPath, "i", "i", "", "input path (required)")
	rootCmd.Flags().StringVarP(&outPath, "o", "o", "", "output CSV path (required)")
	rootCmd.Flags().StringVarP(&keysFlag, "p", "p", "", "comma-separated metadata key names (required)")
	rootCmd.Flags().Int64VarP(&stride, "n", "n", 1, "trace stride")
	rootCmd.Flags().Int64VarP(&maxMemory, "m", "m", 64, "memory budget in MiB")
	rootCmd.MarkFlagRequired("i")
	rootCmd.MarkFlagRequired("o")
	rootCmd.MarkFlagRequired("p")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
