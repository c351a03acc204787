// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loopfind is demo plumbing for cmd/loopaccess's -fromgo mode:
// a minimal single-back-edge natural-loop finder over *ssa.Function
// CFGs. It is not part of the core dependence analysis and makes no
// attempt to handle irreducible control flow; real callers are
// expected to bring their own loop-discovery pass (spec.md §1 scopes
// loop discovery out of this package's concerns).
package loopfind

import (
	"golang.org/x/tools/go/ssa"

	"github.com/aclements/loopaccess"
)

// Loop is a discovered natural loop for one back edge: the header
// that edge enters, plus every block that reaches the edge's source
// without passing through the header again.
type Loop struct {
	header   *ssa.BasicBlock
	blocks   []*ssa.BasicBlock
	backedge loopaccess.Backedge
	latch    *ssa.BasicBlock
	exiting  *ssa.BasicBlock
	idom     map[*ssa.BasicBlock]*ssa.BasicBlock
}

func (l *Loop) Blocks() []*ssa.BasicBlock { return l.blocks }
func (l *Loop) Header() *ssa.BasicBlock   { return l.header }
func (l *Loop) IsInnermost() bool {
	// A block belongs to a nested loop if it is a loop header
	// itself (reachable by its own back edge) other than l's own
	// header; this finder doesn't build a loop nest, so it treats
	// every discovered loop as innermost unless one of its blocks is
	// also a header of a distinct back edge.
	for _, b := range l.blocks {
		if b == l.header {
			continue
		}
		for _, p := range b.Preds {
			if dominates(l.idom, b, p) {
				return false
			}
		}
	}
	return true
}
func (l *Loop) Backedges() []loopaccess.Backedge     { return []loopaccess.Backedge{l.backedge} }
func (l *Loop) Latch() (*ssa.BasicBlock, bool)        { return l.latch, l.latch != nil }
func (l *Loop) ExitingBlock() (*ssa.BasicBlock, bool) { return l.exiting, l.exiting != nil }
func (l *Loop) Parallel() bool                        { return false }

// Find returns one Loop for each back edge in fn, in no particular
// order. A header entered by several back edges yields several Loops,
// each reporting only its own back edge.
func Find(fn *ssa.Function) []*Loop {
	idom := computeDominators(fn)

	var loops []*Loop
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if !dominates(idom, succ, b) {
				continue // not a back edge
			}
			loops = append(loops, buildLoop(fn, succ, b, idom))
		}
	}
	return loops
}

// buildLoop collects every block that can reach latch without passing
// through header again, plus header itself.
func buildLoop(fn *ssa.Function, header, latch *ssa.BasicBlock, idom map[*ssa.BasicBlock]*ssa.BasicBlock) *Loop {
	inLoop := map[*ssa.BasicBlock]bool{header: true}
	stack := []*ssa.BasicBlock{latch}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if inLoop[b] {
			continue
		}
		inLoop[b] = true
		for _, pred := range b.Preds {
			if !inLoop[pred] {
				stack = append(stack, pred)
			}
		}
	}

	var blocks []*ssa.BasicBlock
	for b := range inLoop {
		blocks = append(blocks, b)
	}

	var exiting *ssa.BasicBlock
	exitCount := 0
	for _, b := range blocks {
		for _, s := range b.Succs {
			if !inLoop[s] {
				exitCount++
				exiting = b
			}
		}
	}
	if exitCount != 1 {
		exiting = nil
	}

	return &Loop{
		header:   header,
		blocks:   blocks,
		backedge: loopaccess.Backedge{From: latch, To: header},
		latch:    latch,
		exiting:  exiting,
		idom:     idom,
	}
}

// Dominators returns the immediate dominator of every block in fn via
// the standard iterative data-flow algorithm (Cooper, Harvey &
// Kennedy, "A Simple, Fast Dominance Algorithm"). It is exported so
// hosts that need a DominatorTree (e.g. cmd/loopaccess's -fromgo demo)
// can build one without depending on a second dominance computation.
func Dominators(fn *ssa.Function) map[*ssa.BasicBlock]*ssa.BasicBlock {
	return computeDominators(fn)
}

func computeDominators(fn *ssa.Function) map[*ssa.BasicBlock]*ssa.BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	entry := fn.Blocks[0]

	postorder := make([]*ssa.BasicBlock, 0, len(fn.Blocks))
	visited := map[*ssa.BasicBlock]bool{}
	var visit func(b *ssa.BasicBlock)
	visit = func(b *ssa.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		postorder = append(postorder, b)
	}
	visit(entry)

	postIndex := map[*ssa.BasicBlock]int{}
	for i, b := range postorder {
		postIndex[b] = i
	}

	idom := map[*ssa.BasicBlock]*ssa.BasicBlock{entry: entry}
	changed := true
	for changed {
		changed = false
		for i := len(postorder) - 2; i >= 0; i-- {
			b := postorder[i]
			var newIdom *ssa.BasicBlock
			for _, pred := range b.Preds {
				if idom[pred] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = pred
					continue
				}
				newIdom = intersect(idom, postIndex, newIdom, pred)
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom map[*ssa.BasicBlock]*ssa.BasicBlock, postIndex map[*ssa.BasicBlock]int, a, b *ssa.BasicBlock) *ssa.BasicBlock {
	for a != b {
		for postIndex[a] < postIndex[b] {
			a = idom[a]
		}
		for postIndex[b] < postIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b, inclusive, given idom as
// returned by Dominators.
func Dominates(idom map[*ssa.BasicBlock]*ssa.BasicBlock, a, b *ssa.BasicBlock) bool {
	return dominates(idom, a, b)
}

// dominates reports whether a dominates b, inclusive.
func dominates(idom map[*ssa.BasicBlock]*ssa.BasicBlock, a, b *ssa.BasicBlock) bool {
	for {
		if a == b {
			return true
		}
		parent, ok := idom[b]
		if !ok || parent == b {
			return a == b
		}
		b = parent
	}
}
