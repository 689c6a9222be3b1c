// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package piol

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Communicator provides the collective primitives of spec.md §4.1 over a
// fixed-size process group. Every method is collective: every rank must
// call it, in the same order, or the group deadlocks (§5). The interface is
// deliberately narrow so a real MPI binding could implement it without
// touching any caller in C2–C10; this module ships Local, an in-process
// emulation built on goroutines and channels, which is what spec.md §9
// recommends for languages without native one-sided RMA.
type Communicator interface {
	Rank() int
	NumRanks() int
	Barrier()
	Sum(x float64) float64
	SumInt(x int64) int64
	Max(x float64) float64
	Min(x float64) float64
	Gather(x float64) []float64
	GatherInt(x int64) []int64
	// Offset returns the exclusive prefix sum of localN across ranks: the
	// global offset at which the calling rank's slice begins.
	Offset(localN int64) int64
	// Or performs a collective logical-or reduction, used by C8's
	// fixpoint check.
	Or(x bool) bool
}

// rendezvous is one collective call's shared state: every rank contributes
// a value, the last arrival computes the result, and all ranks observe it.
type rendezvous struct {
	mu      sync.Mutex
	cond    *sync.Cond
	epoch   int
	arrived int
	values  []interface{}
	result  interface{}
}

func newRendezvous(n int) *rendezvous {
	r := &rendezvous{values: make([]interface{}, n)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// enter is the generic collective step: rank contributes value, and the
// first rank to complete the group's arrival computes result via combine
// over every contributed value (in rank order); every rank then observes
// the same result. enter blocks until all NumRanks() calls have arrived,
// exactly mirroring the blocking semantics of §5.
func (r *rendezvous) enter(rank, n int, value interface{}, combine func([]interface{}) interface{}) interface{} {
	r.mu.Lock()
	myEpoch := r.epoch
	r.values[rank] = value
	r.arrived++
	if r.arrived == n {
		r.result = combine(r.values)
		r.arrived = 0
		r.values = make([]interface{}, n)
		r.epoch++
		r.cond.Broadcast()
	} else {
		for r.epoch == myEpoch {
			r.cond.Wait()
		}
	}
	res := r.result
	r.mu.Unlock()
	return res
}

// Local is an in-process Communicator emulating a group of ranks, each
// driven by its own goroutine. It is the deployment mode used by the CLI
// tools in §6 when run as a single process (one rank), and the harness
// every collective test in this module uses to exercise more than one
// rank without a real MPI runtime.
type Local struct {
	rank, numRanks int
	group          *localGroup
}

// localGroup is the shared rendezvous state for one Local communicator
// group; every per-rank Local shares a pointer to the same localGroup.
type localGroup struct {
	n         int
	barrier   *rendezvous
	sum       *rendezvous
	sumInt    *rendezvous
	max       *rendezvous
	min       *rendezvous
	gather    *rendezvous
	gatherInt *rendezvous
	offset    *rendezvous
	or        *rendezvous

	// linkMu/links back the point-to-point Send/Recv used by C8's
	// neighbour-exchange sort, keyed by (from, to, tag).
	linkMu sync.Mutex
	links  map[[3]int]chan interface{}
}

func newLocalGroup(n int) *localGroup {
	return &localGroup{
		n:         n,
		barrier:   newRendezvous(n),
		sum:       newRendezvous(n),
		sumInt:    newRendezvous(n),
		max:       newRendezvous(n),
		min:       newRendezvous(n),
		gather:    newRendezvous(n),
		gatherInt: newRendezvous(n),
		offset:    newRendezvous(n),
		or:        newRendezvous(n),
	}
}

// NewLocalGroup builds numRanks Local communicators sharing one process
// group, one per simulated rank, indexed by rank.
func NewLocalGroup(numRanks int) []*Local {
	g := newLocalGroup(numRanks)
	out := make([]*Local, numRanks)
	for r := 0; r < numRanks; r++ {
		out[r] = &Local{rank: r, numRanks: numRanks, group: g}
	}
	return out
}

// RunLocal runs fn once per rank of an numRanks-sized Local group,
// concurrently, via an errgroup.Group, and returns the first error any rank
// returned.
func RunLocal(numRanks int, fn func(comm *Local) error) error {
	comms := NewLocalGroup(numRanks)
	g, _ := errgroup.WithContext(context.Background())
	for _, c := range comms {
		c := c
		g.Go(func() error { return fn(c) })
	}
	return g.Wait()
}

// Rank implements Communicator.
func (l *Local) Rank() int { return l.rank }

// NumRanks implements Communicator.
func (l *Local) NumRanks() int { return l.numRanks }

// Barrier implements Communicator.
func (l *Local) Barrier() {
	l.group.barrier.enter(l.rank, l.numRanks, struct{}{}, func([]interface{}) interface{} { return struct{}{} })
}

// Sum implements Communicator.
func (l *Local) Sum(x float64) float64 {
	res := l.group.sum.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		var total float64
		for _, v := range vals {
			total += v.(float64)
		}
		return total
	})
	return res.(float64)
}

// SumInt implements Communicator.
func (l *Local) SumInt(x int64) int64 {
	res := l.group.sumInt.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		var total int64
		for _, v := range vals {
			total += v.(int64)
		}
		return total
	})
	return res.(int64)
}

// Max implements Communicator.
func (l *Local) Max(x float64) float64 {
	res := l.group.max.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		m := vals[0].(float64)
		for _, v := range vals[1:] {
			if f := v.(float64); f > m {
				m = f
			}
		}
		return m
	})
	return res.(float64)
}

// Min implements Communicator.
func (l *Local) Min(x float64) float64 {
	res := l.group.min.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		m := vals[0].(float64)
		for _, v := range vals[1:] {
			if f := v.(float64); f < m {
				m = f
			}
		}
		return m
	})
	return res.(float64)
}

// Gather implements Communicator: the result is the rank-ordered
// concatenation of every rank's contribution, per §4.1.
func (l *Local) Gather(x float64) []float64 {
	res := l.group.gather.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = v.(float64)
		}
		return out
	})
	return res.([]float64)
}

// GatherInt is the int64 form of Gather.
func (l *Local) GatherInt(x int64) []int64 {
	res := l.group.gatherInt.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		out := make([]int64, len(vals))
		for i, v := range vals {
			out[i] = v.(int64)
		}
		return out
	})
	return res.([]int64)
}

// Offset implements Communicator: the exclusive prefix sum of localN.
func (l *Local) Offset(localN int64) int64 {
	res := l.group.offset.enter(l.rank, l.numRanks, localN, func(vals []interface{}) interface{} {
		prefix := make([]int64, len(vals))
		var running int64
		for i, v := range vals {
			prefix[i] = running
			running += v.(int64)
		}
		return prefix
	})
	return res.([]int64)[l.rank]
}

// Or implements Communicator.
func (l *Local) Or(x bool) bool {
	res := l.group.or.enter(l.rank, l.numRanks, x, func(vals []interface{}) interface{} {
		for _, v := range vals {
			if v.(bool) {
				return true
			}
		}
		return false
	})
	return res.(bool)
}
