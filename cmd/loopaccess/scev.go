// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/aclements/loopaccess"
	"github.com/aclements/loopaccess/internal/loopfind"
)

// simpleSCEV is a small, real (not a test fake) ScalarEvolution
// implementation for the -fromgo demo: it recognizes the common
// vectorizable shape *ssa.IndexAddr{X: base, Index: iv} where iv is
// either the loop's induction variable Phi directly, or a BinOp of
// that Phi with a constant (covering a[i], a[i+1], a[i-3], and
// similar). Anything else is reported as loop-invariant-but-unknown,
// which is conservative: the Stride Analyzer will reject it rather
// than mis-analyze it.
type simpleSCEV struct {
	iv     *ssa.Phi // the loop's induction variable
	ivStep int64    // the induction variable's per-iteration step
}

type recurrence struct {
	base loopaccess.Expr
	step loopaccess.Expr
}

func (r recurrence) IsConstant() (int64, bool) { return 0, false }
func (r recurrence) IsInvariant() bool         { return false }
func (r recurrence) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{Base: r.base, Step: r.step, NoWrap: false, InBounds: true}, true
}
func (r recurrence) String() string { return "{" + r.base.String() + ",+," + r.step.String() + "}" }

type unknown struct{ v ssa.Value }

func (unknown) IsConstant() (int64, bool) { return 0, false }
func (unknown) IsInvariant() bool         { return true }
func (unknown) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{}, false
}
func (u unknown) String() string {
	if u.v == nil {
		return "<unknown>"
	}
	return u.v.Name()
}

// SCEV classifies v's address arithmetic.
func (s *simpleSCEV) SCEV(v ssa.Value) loopaccess.Expr {
	idx, ok := v.(*ssa.IndexAddr)
	if !ok {
		return unknown{v}
	}
	switch index := idx.Index.(type) {
	case *ssa.Phi:
		if index == s.iv {
			return recurrence{base: indexBase{idx.X, 0}, step: loopaccess.ConstExpr(s.ivStep)}
		}
	case *ssa.BinOp:
		if phi, ok := index.X.(*ssa.Phi); ok && phi == s.iv {
			if c, ok := index.Y.(*ssa.Const); ok {
				off := c.Int64()
				if index.Op == token.SUB {
					off = -off
				}
				return recurrence{base: indexBase{idx.X, off}, step: loopaccess.ConstExpr(s.ivStep)}
			}
		}
	}
	return unknown{v}
}

// indexBase names a*ssa.IndexAddr recurrence's starting offset (in
// elements) from the slice/array it indexes, so that two recurrences
// sharing the same X but differing offsets yield a constant
// difference under Subtract.
type indexBase struct {
	x      ssa.Value
	offset int64
}

func (b indexBase) IsConstant() (int64, bool) { return b.offset, true }
func (b indexBase) IsInvariant() bool         { return true }
func (indexBase) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{}, false
}
func (b indexBase) String() string { return b.x.Name() }

func (s *simpleSCEV) BackedgeTakenCount(loopaccess.LoopInspector) (loopaccess.Expr, bool) {
	// The demo front end doesn't attempt trip-count analysis;
	// treat it as an unknown, finite, symbolic value. EvaluateAtIteration
	// is only used to materialize the runtime check's upper bound, which
	// the demo's ExpressionExpander doesn't need to reduce further.
	return unknown{nil}, true
}

func (s *simpleSCEV) Substitute(e loopaccess.Expr, sym map[ssa.Value]struct{}) loopaccess.Expr {
	return e // the demo never declares symbolic-stride parameters
}

func (s *simpleSCEV) IsLoopInvariant(e loopaccess.Expr, _ loopaccess.LoopInspector) bool {
	return e.IsInvariant()
}

func (s *simpleSCEV) Subtract(a, b loopaccess.Expr) loopaccess.Expr {
	// Two recurrences with the same step differ by their bases.
	if ra, ok := a.(recurrence); ok {
		if rb, ok := b.(recurrence); ok && ra.step.String() == rb.step.String() {
			a, b = ra.base, rb.base
		}
	}
	ab, aok := a.(indexBase)
	bb, bok := b.(indexBase)
	if aok && bok && ab.x == bb.x {
		return loopaccess.ConstExpr(ab.offset - bb.offset)
	}
	return unknown{nil}
}

func (s *simpleSCEV) EvaluateAtIteration(e, count loopaccess.Expr) loopaccess.Expr {
	return e
}

// simpleLayout is a DataLayout using go/types.Sizes for element sizes
// and the default address space for every pointer.
type simpleLayout struct {
	sizes types.Sizes
}

func (l simpleLayout) ElementSize(t types.Type) int64 {
	if t == nil {
		return 0
	}
	return l.sizes.Sizeof(t)
}

func (l simpleLayout) AddressSpace(ssa.Value) int { return 0 }

// simpleAlias is an AliasOracle that puts every access into a single
// alias set: the demo has no real alias analysis, so it conservatively
// assumes everything might alias everything else, same as the
// "unknown aliasing" scenario the analysis is specifically designed to
// still handle via a runtime check.
type simpleAlias struct{}

func (simpleAlias) ComputeAliasSets(accesses []loopaccess.AccessTag) []loopaccess.AliasSet {
	return []loopaccess.AliasSet{{Accesses: accesses}}
}

func (simpleAlias) AttachTBAA(loopaccess.AccessTag, loopaccess.TBAAInfo) {}

// simpleDom answers dominance over one function using the same
// iterative dominance computation internal/loopfind already needs for
// loop discovery (loopfind.Dominators), and treats post-dominance
// conservatively as "unknown" (false): this only means the demo
// discards TBAA metadata more eagerly than a real post-dominator-tree
// check would, which is sound.
type simpleDom struct {
	idom map[*ssa.BasicBlock]*ssa.BasicBlock
}

func (d simpleDom) Dominates(a, b *ssa.BasicBlock) bool { return loopfind.Dominates(d.idom, a, b) }
func (simpleDom) PostDominates(a, b *ssa.BasicBlock) bool { return false }
