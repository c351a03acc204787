// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"go/token"

	"golang.org/x/tools/go/ssa"
)

// A MemOp is one memory operation in a loop: either a load or a
// store. Load and Store are the only two variants; all access-taking
// operations in this package accept the MemOp interface rather than
// switching on concrete instruction types, so that hosts with
// different IRs only need to produce these two shapes.
type MemOp interface {
	// Pointer returns the SSA value holding the address accessed.
	Pointer() ssa.Value

	// Pos returns the source position of the access, for
	// diagnostics.
	Pos() token.Pos

	// Block returns the basic block containing this access.
	Block() *ssa.BasicBlock

	// TBAA returns type-based-aliasing metadata for this access, or
	// nil if the host did not attach any.
	TBAA() TBAAInfo

	isMemOp()
}

// Load is a simple, non-atomic memory read through Ptr.
type Load struct {
	Ptr      ssa.Value
	Position token.Pos
	Blk      *ssa.BasicBlock
	Metadata TBAAInfo
}

func (l Load) Pointer() ssa.Value        { return l.Ptr }
func (l Load) Pos() token.Pos            { return l.Position }
func (l Load) Block() *ssa.BasicBlock    { return l.Blk }
func (l Load) TBAA() TBAAInfo            { return l.Metadata }
func (l Load) isMemOp()                  {}

// Store is a simple, non-atomic memory write of Val through Ptr.
type Store struct {
	Ptr, Val ssa.Value
	Position token.Pos
	Blk      *ssa.BasicBlock
	Metadata TBAAInfo
}

func (s Store) Pointer() ssa.Value     { return s.Ptr }
func (s Store) Pos() token.Pos         { return s.Position }
func (s Store) Block() *ssa.BasicBlock { return s.Blk }
func (s Store) TBAA() TBAAInfo         { return s.Metadata }
func (s Store) isMemOp()               {}

// An AccessTag identifies one memory operation by its pointer and
// read/write direction, together with its position in program order.
// Two tags over the same pointer but different directions (one a
// Load, one a Store) are always distinct tags, even though they share
// an underlying address: a loop that only reads a[i] and a loop that
// reads and writes a[i] have different dependence behavior.
type AccessTag struct {
	Op MemOp

	// Index is this access's position in the program-order
	// sequence the driver assembled for the loop. Pair comparisons
	// in the Dependence Checker always compare the smaller Index
	// first.
	Index int

	// id is this tag's slot in the analysis's tag arena, used by
	// the union-find and by alias-set bitsets. It is assigned once
	// by the driver when the tag is created and never changes.
	id int
}

// IsWrite reports whether this access writes memory.
func (t AccessTag) IsWrite() bool {
	_, ok := t.Op.(Store)
	return ok
}

// Pointer returns the SSA value holding the address this access
// touches.
func (t AccessTag) Pointer() ssa.Value {
	return t.Op.Pointer()
}

// sameUnderlyingObject reports whether two pointers are known, without
// a full alias query, to index into the same base object: either they
// are the literal same SSA value, or both are *ssa.IndexAddr
// computations off the same base slice/array value. This is the
// "underlying object" test the Access Classifier uses to merge
// dependence-candidate tags (spec step: "for every underlying object
// computed from the pointer, merge the new tag with the previously
// recorded last tag for that object"): it is what lets a[i] and
// a[i-3] land in the same dependence-candidate class even though they
// are different SSA values, so the Dependence Checker can compute a
// real constant distance between them. It is conservative in the
// sense that it will under-merge relative to a full alias query, never
// over-merge.
func sameUnderlyingObject(a, b ssa.Value) bool {
	if a == b {
		return true
	}
	ia, ok := a.(*ssa.IndexAddr)
	if !ok {
		return false
	}
	ib, ok := b.(*ssa.IndexAddr)
	if !ok {
		return false
	}
	return ia.X == ib.X
}
