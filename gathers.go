// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import "math"

// GatherInfo describes one inline/crossline gather: the number of traces
// sharing the same (inline, crossline) pair, per §3.
type GatherInfo struct {
	NumTraces int64
	Inline    int64
	Crossline int64
}

// GetGathers finds the (inline, crossline) gathers of a decomposed
// metadata table. Each rank run-length scans its local rows, then the
// rank boundaries are reconciled collectively: a gather spanning two or
// more ranks is owned by the lowest rank it touches, which absorbs the
// continuation counts; the higher ranks drop their leading partial
// gather. Rows must arrive already ordered so that equal (inline,
// crossline) pairs are contiguous globally. Collective.
func GetGathers(comm Communicator, table *TraceMetadata) []GatherInfo {
	rank, numRanks := comm.Rank(), comm.NumRanks()

	var local []GatherInfo
	if table != nil && table.Size() > 0 {
		il := table.GetInteger(0, Inline)
		xl := table.GetInteger(0, Crossline)
		local = append(local, GatherInfo{NumTraces: 1, Inline: il, Crossline: xl})
		for i := 1; i < table.Size(); i++ {
			cil := table.GetInteger(i, Inline)
			cxl := table.GetInteger(i, Crossline)
			if cil != il || cxl != xl {
				local = append(local, GatherInfo{Inline: cil, Crossline: cxl})
				il, xl = cil, cxl
			}
			local[len(local)-1].NumTraces++
		}
	}

	// Sentinel pairs for empty ranks can never match a real gather.
	frontN, frontIl, frontXl := int64(0), int64(math.MinInt64), int64(math.MinInt64)
	backIl, backXl := int64(math.MinInt64), int64(math.MinInt64)
	if len(local) > 0 {
		frontN, frontIl, frontXl = local[0].NumTraces, local[0].Inline, local[0].Crossline
		backIl, backXl = local[len(local)-1].Inline, local[len(local)-1].Crossline
	}
	allFrontN := comm.GatherInt(frontN)
	allFrontIl := comm.GatherInt(frontIl)
	allFrontXl := comm.GatherInt(frontXl)
	allBackIl := comm.GatherInt(backIl)
	allBackXl := comm.GatherInt(backXl)

	start := 0
	if rank > 0 && len(local) > 0 && allBackIl[rank-1] == frontIl && allBackXl[rank-1] == frontXl {
		start = 1
	}
	if start < len(local) {
		for q := rank + 1; q < numRanks; q++ {
			if allFrontIl[q] != backIl || allFrontXl[q] != backXl {
				break
			}
			local[len(local)-1].NumTraces += allFrontN[q]
		}
	}
	return local[start:]
}
