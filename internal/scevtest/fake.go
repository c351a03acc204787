// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scevtest provides small, in-memory fakes for the external
// collaborator interfaces loopaccess depends on (LoopInspector,
// ScalarEvolution, AliasOracle, DataLayout, DominatorTree,
// ExpressionExpander), so loopaccess's own tests can drive the
// analysis without a real compiler frontend. The fakes are modeled on
// rtcheck/val.go's DynValue: a narrow sealed interface plus a handful
// of concrete variant structs, rather than one general-purpose
// expression tree.
package scevtest

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/aclements/loopaccess"
)

// Invariant returns an Expr that is loop-invariant but not a known
// compile-time constant, e.g. a function parameter used as a bound.
func Invariant() loopaccess.Expr { return invariantExpr{} }

type invariantExpr struct{}

func (invariantExpr) IsConstant() (int64, bool)                    { return 0, false }
func (invariantExpr) IsInvariant() bool                            { return true }
func (invariantExpr) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{}, false
}
func (invariantExpr) String() string { return "<invariant>" }

// Recurrence returns an affine add-recurrence Expr {base, +, step}.
func Recurrence(base, step loopaccess.Expr, noWrap, inBounds bool) loopaccess.Expr {
	return recurrenceExpr{base, step, noWrap, inBounds}
}

type recurrenceExpr struct {
	base, step         loopaccess.Expr
	noWrap, inBounds bool
}

func (recurrenceExpr) IsConstant() (int64, bool) { return 0, false }
func (recurrenceExpr) IsInvariant() bool         { return false }
func (e recurrenceExpr) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{Base: e.base, Step: e.step, NoWrap: e.noWrap, InBounds: e.inBounds}, true
}
func (e recurrenceExpr) String() string {
	return fmt.Sprintf("{%s,+,%s}", e.base, e.step)
}

// symbolicExpr stands for a frontend-declared "symbolic stride"
// parameter: a value the Symbolic Stride Rewriter may substitute to
// the constant 1.
type symbolicExpr struct {
	v ssa.Value
}

// Symbolic returns an Expr representing the as-yet-unresolved stride
// of a symbolic-stride parameter v.
func Symbolic(v ssa.Value) loopaccess.Expr { return symbolicExpr{v} }

func (symbolicExpr) IsConstant() (int64, bool) { return 0, false }
func (symbolicExpr) IsInvariant() bool         { return true }
func (symbolicExpr) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{}, false
}
func (e symbolicExpr) String() string { return "<symbolic>" }

// evalExpr is what EvaluateAtIteration returns: an opaque marker that
// a recurrence was evaluated at some iteration count. It is never
// constant or a further recurrence, matching an address value the
// fake has no way to reduce further.
type evalExpr struct {
	of    loopaccess.Expr
	count loopaccess.Expr
}

func (evalExpr) IsConstant() (int64, bool) { return 0, false }
func (evalExpr) IsInvariant() bool         { return false }
func (evalExpr) AsAddRecurrence() (loopaccess.AddRecurrence, bool) {
	return loopaccess.AddRecurrence{}, false
}
func (e evalExpr) String() string { return fmt.Sprintf("eval(%s, %s)", e.of, e.count) }

// SCEV is a map-based ScalarEvolution fake: tests populate Exprs
// directly rather than this package deriving them from real IR.
type SCEV struct {
	Exprs              map[ssa.Value]loopaccess.Expr
	BackedgeCount       loopaccess.Expr
	HaveBackedgeCount bool
}

// NewSCEV returns an empty SCEV fake with no computable
// backedge-taken count; set BackedgeCount and HaveBackedgeCount
// directly, or use WithBackedgeCount.
func NewSCEV() *SCEV {
	return &SCEV{Exprs: map[ssa.Value]loopaccess.Expr{}}
}

// WithBackedgeCount sets a finite, computable backedge-taken count
// and returns s for chaining.
func (s *SCEV) WithBackedgeCount(count int64) *SCEV {
	s.BackedgeCount = loopaccess.ConstExpr(count)
	s.HaveBackedgeCount = true
	return s
}

func (s *SCEV) SCEV(v ssa.Value) loopaccess.Expr {
	if e, ok := s.Exprs[v]; ok {
		return e
	}
	return invariantExpr{}
}

func (s *SCEV) BackedgeTakenCount(loopaccess.LoopInspector) (loopaccess.Expr, bool) {
	return s.BackedgeCount, s.HaveBackedgeCount
}

func (s *SCEV) Substitute(e loopaccess.Expr, sym map[ssa.Value]struct{}) loopaccess.Expr {
	switch v := e.(type) {
	case symbolicExpr:
		if _, ok := sym[v.v]; ok {
			return loopaccess.ConstExpr(1)
		}
		return e
	case recurrenceExpr:
		return recurrenceExpr{
			base:     s.Substitute(v.base, sym),
			step:     s.Substitute(v.step, sym),
			noWrap:   v.noWrap,
			inBounds: v.inBounds,
		}
	default:
		return e
	}
}

func (s *SCEV) IsLoopInvariant(e loopaccess.Expr, _ loopaccess.LoopInspector) bool {
	return e.IsInvariant()
}

// Subtract computes a symbolic difference. Two recurrences with
// structurally equal steps reduce to the constant difference of their
// bases when both bases are constant; anything else that isn't a
// plain constant-minus-constant subtraction is reported as
// non-constant, which drives callers into the runtime-check retry
// path, matching a real scalar-evolution oracle's behavior when it
// cannot prove a fixed distance.
func (s *SCEV) Subtract(a, b loopaccess.Expr) loopaccess.Expr {
	if av, ok := a.IsConstant(); ok {
		if bv, ok := b.IsConstant(); ok {
			return loopaccess.ConstExpr(av - bv)
		}
	}
	ra, aok := a.AsAddRecurrence()
	rb, bok := b.AsAddRecurrence()
	if aok && bok && fmt.Sprint(ra.Step) == fmt.Sprint(rb.Step) {
		return s.Subtract(ra.Base, rb.Base)
	}
	return invariantExpr{}
}

func (s *SCEV) EvaluateAtIteration(e, count loopaccess.Expr) loopaccess.Expr {
	return evalExpr{e, count}
}

// Loop is a plain-struct LoopInspector fake.
type Loop struct {
	AllBlocks   []*ssa.BasicBlock
	Hdr         *ssa.BasicBlock
	Innermost   bool
	BackedgeList []loopaccess.Backedge
	LatchBlk    *ssa.BasicBlock
	HaveLatch   bool
	ExitBlk     *ssa.BasicBlock
	HaveExit    bool
	IsParallel  bool
}

func (l *Loop) Blocks() []*ssa.BasicBlock         { return l.AllBlocks }
func (l *Loop) Header() *ssa.BasicBlock           { return l.Hdr }
func (l *Loop) IsInnermost() bool                 { return l.Innermost }
func (l *Loop) Backedges() []loopaccess.Backedge  { return l.BackedgeList }
func (l *Loop) Latch() (*ssa.BasicBlock, bool)    { return l.LatchBlk, l.HaveLatch }
func (l *Loop) ExitingBlock() (*ssa.BasicBlock, bool) { return l.ExitBlk, l.HaveExit }
func (l *Loop) Parallel() bool                    { return l.IsParallel }

// Alias is an AliasOracle fake: ComputeAliasSets groups accesses by a
// caller-provided key function (e.g. grouping a[i] and b[i] separately
// when they provably don't alias, or together when the alias relation
// is unknown).
type Alias struct {
	// GroupKey assigns each access to an alias-set key; accesses
	// with equal keys land in the same AliasSet, in the order
	// ComputeAliasSets received them. If nil, every access lands in
	// a single alias set.
	GroupKey func(loopaccess.AccessTag) int

	attached map[int]loopaccess.TBAAInfo
}

func (a *Alias) ComputeAliasSets(accesses []loopaccess.AccessTag) []loopaccess.AliasSet {
	if a.GroupKey == nil {
		return []loopaccess.AliasSet{{Accesses: accesses}}
	}
	order := []int{}
	byKey := map[int][]loopaccess.AccessTag{}
	for _, t := range accesses {
		k := a.GroupKey(t)
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], t)
	}
	var sets []loopaccess.AliasSet
	for _, k := range order {
		sets = append(sets, loopaccess.AliasSet{Accesses: byKey[k]})
	}
	return sets
}

func (a *Alias) AttachTBAA(t loopaccess.AccessTag, md loopaccess.TBAAInfo) {
	if a.attached == nil {
		a.attached = map[int]loopaccess.TBAAInfo{}
	}
	a.attached[t.Index] = md
}

// Layout is a DataLayout fake with a fixed element size and address
// space for every pointer (real targets vary this by type and by
// pointer provenance; tests that need a non-default address space set
// Spaces directly).
type Layout struct {
	Sizes  map[ssa.Value]int64
	Spaces map[ssa.Value]int

	DefaultSize int64
}

func (l *Layout) ElementSize(t types.Type) int64 { return l.DefaultSize }

func (l *Layout) AddressSpace(v ssa.Value) int {
	if s, ok := l.Spaces[v]; ok {
		return s
	}
	return 0
}

// Dom is a DominatorTree fake backed by explicit relation sets.
type Dom struct {
	DominatesSet     map[[2]*ssa.BasicBlock]bool
	PostDominatesSet map[[2]*ssa.BasicBlock]bool
}

func (d *Dom) Dominates(a, b *ssa.BasicBlock) bool     { return d.DominatesSet[[2]*ssa.BasicBlock{a, b}] }
func (d *Dom) PostDominates(a, b *ssa.BasicBlock) bool { return d.PostDominatesSet[[2]*ssa.BasicBlock{a, b}] }

// Expander is an ExpressionExpander fake that doesn't build any real
// IR: it renders every expanded value as a distinct *ssa.Const slot,
// and records enough of the comparison/combination structure
// (Record) for a test to assert on, without needing a real ssa
// builder or function to insert instructions into.
type Expander struct {
	Record []string
	next   int
	vals   map[string]ssa.Value
}

func (e *Expander) fresh(label string) ssa.Value {
	if e.vals == nil {
		e.vals = map[string]ssa.Value{}
	}
	e.next++
	v := ssa.NewConst(nil, types.Typ[types.Int])
	e.vals[label] = v
	return v
}

func (e *Expander) Expand(x loopaccess.Expr, _ loopaccess.InsertionPoint) ssa.Value {
	label := fmt.Sprintf("expand(%s)", x)
	e.Record = append(e.Record, label)
	return e.fresh(label)
}

func (e *Expander) LessOrEqual(a, b ssa.Value, _ loopaccess.InsertionPoint) ssa.Value {
	e.Record = append(e.Record, "le")
	return e.fresh(fmt.Sprintf("le#%d", e.next))
}

func (e *Expander) Or(a, b ssa.Value, _ loopaccess.InsertionPoint) ssa.Value {
	e.Record = append(e.Record, "or")
	return e.fresh(fmt.Sprintf("or#%d", e.next))
}

func (e *Expander) And(a, b ssa.Value, _ loopaccess.InsertionPoint) ssa.Value {
	e.Record = append(e.Record, "and")
	return e.fresh(fmt.Sprintf("and#%d", e.next))
}
