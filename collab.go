// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// A Backedge is one back edge of a loop, from From to To (To
// dominates From).
type Backedge struct {
	From, To *ssa.BasicBlock
}

// A LoopInspector answers structural questions about one loop that
// the host's loop-discovery pass has already identified. loopaccess
// never discovers loops itself; it only consumes this interface.
type LoopInspector interface {
	// Blocks returns every basic block in the loop, in no
	// particular order.
	Blocks() []*ssa.BasicBlock

	// Header returns the loop's header block.
	Header() *ssa.BasicBlock

	// IsInnermost reports whether the loop has no child loops.
	IsInnermost() bool

	// Backedges returns every back edge of the loop.
	Backedges() []Backedge

	// Latch returns the loop's latch block, if it has exactly one.
	Latch() (*ssa.BasicBlock, bool)

	// ExitingBlock returns the loop's unique exiting block, if it
	// has exactly one.
	ExitingBlock() (*ssa.BasicBlock, bool)

	// Parallel reports whether the frontend annotated this loop as
	// having no cross-iteration memory dependences.
	Parallel() bool
}

// A ScalarEvolution oracle computes symbolic closed-form expressions
// for SSA values with respect to a particular loop.
type ScalarEvolution interface {
	// SCEV returns the symbolic expression for v.
	SCEV(v ssa.Value) Expr

	// BackedgeTakenCount returns the loop's backedge-taken count,
	// or ok=false if it is not a computable finite value.
	BackedgeTakenCount(l LoopInspector) (count Expr, ok bool)

	// Substitute returns e with every appearance of a value in sym
	// replaced by the constant 1. It performs no IR mutation.
	Substitute(e Expr, sym map[ssa.Value]struct{}) Expr

	// IsLoopInvariant reports whether e does not vary within l.
	IsLoopInvariant(e Expr, l LoopInspector) bool

	// Subtract returns the symbolic difference a - b.
	Subtract(a, b Expr) Expr

	// EvaluateAtIteration returns e evaluated at iteration count
	// (used to compute end_expr from a recurrence's backedge-taken
	// count).
	EvaluateAtIteration(e Expr, count Expr) Expr
}

// TBAAInfo is opaque type-based-aliasing metadata attached to an
// access by AliasOracle.AttachTBAA and consulted only by the host's
// own alias analysis.
type TBAAInfo interface{}

// An AliasSet is a coarse, alias-oracle-determined partition of
// accesses: accesses in different AliasSets are known not to overlap,
// so dependence checking is scoped to one AliasSet at a time.
type AliasSet struct {
	// Accesses are the tags the alias oracle placed in this set, in
	// the order ComputeAliasSets was given them.
	Accesses []AccessTag
}

// An AliasOracle partitions a loop's accesses into alias sets and
// records type-based-aliasing metadata.
type AliasOracle interface {
	// ComputeAliasSets partitions accesses into alias sets. Every
	// access appears in exactly one returned set.
	ComputeAliasSets(accesses []AccessTag) []AliasSet

	// AttachTBAA records TBAA metadata for a, if the block
	// containing a post-dominates the loop's latch. Implementations
	// are expected to discard metadata for accesses under blocks
	// that do not post-dominate the latch, since the metadata may
	// be conditionally valid.
	AttachTBAA(a AccessTag, md TBAAInfo)
}

// A DataLayout answers target-specific size and address-space
// questions.
type DataLayout interface {
	// ElementSize returns the allocation size in bytes of t.
	ElementSize(t types.Type) int64

	// AddressSpace returns the address space pointer value v lives
	// in. Address space 0 is the default space, in which
	// out-of-bounds pointer arithmetic is undefined behavior.
	AddressSpace(v ssa.Value) int
}

// A DominatorTree answers block-dominance questions over the
// function containing the loop under analysis.
type DominatorTree interface {
	// Dominates reports whether a dominates b.
	Dominates(a, b *ssa.BasicBlock) bool

	// PostDominates reports whether a post-dominates b: every path
	// from b to the function's exit passes through a. The Access
	// Classifier uses this to decide whether TBAA metadata attached
	// in a block is unconditionally valid by the time the loop's
	// latch executes (spec.md §4.3).
	PostDominates(a, b *ssa.BasicBlock) bool
}

// An InsertionPoint names where ExpressionExpander.Expand should
// materialize new instructions.
type InsertionPoint struct {
	Block  *ssa.BasicBlock
	Before ssa.Instruction // nil to append at block end
}

// An ExpressionExpander materializes a symbolic Expr as IR, for the
// optional runtime-check emission helper (EmitRuntimeCheck). Expr
// itself never does this: expansion is a service of the host,
// consistent with spec.md §1 treating expansion as an external
// collaborator. LessOrEqual, Or, and And materialize the boolean
// comparison and combination IR the overlap predicate needs; they are
// part of this interface rather than built directly by loopaccess
// because what a boolean value and an unsigned compare look like is
// itself host/target-specific, same as Expand.
type ExpressionExpander interface {
	Expand(e Expr, at InsertionPoint) ssa.Value
	LessOrEqual(a, b ssa.Value, at InsertionPoint) ssa.Value
	Or(a, b ssa.Value, at InsertionPoint) ssa.Value
	And(a, b ssa.Value, at InsertionPoint) ssa.Value
}
