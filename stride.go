// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// StrideFailure describes why the Stride Analyzer could not compute a
// usable stride for a pointer (spec.md §4.1 "Failure reasons").
type StrideFailure int

const (
	strideOK StrideFailure = iota
	strideNotAffine
	strideWraps
	strideNonConstantStep
	strideNonDivisibleStep
	strideAggregateElem
)

func (f StrideFailure) String() string {
	switch f {
	case strideOK:
		return ""
	case strideNotAffine:
		return "not-affine"
	case strideWraps:
		return "wraps"
	case strideNonConstantStep:
		return "non-constant step"
	case strideNonDivisibleStep:
		return "non-divisible step"
	case strideAggregateElem:
		return "aggregate element type"
	default:
		return "unknown"
	}
}

// A Stride is the signed element-count stride of an access, as
// computed by analyzeStride. A zero Stride means "not usable".
type Stride int64

// Consecutive reports whether s is the "consecutive" stride verdict
// from spec.md §3: +1 or -1.
func (s Stride) Consecutive() bool { return s == 1 || s == -1 }

// elemType returns the pointee type of a pointer SSA value's static
// type, or nil if v is not a pointer.
func elemType(v ssa.Value) types.Type {
	pt, ok := v.Type().Underlying().(*types.Pointer)
	if !ok {
		return nil
	}
	return pt.Elem()
}

// isAggregate reports whether t is an aggregate type (struct, array,
// or a composite whose underlying representation is one): spec.md
// §4.1 step 1 rejects these because a single strided recurrence
// cannot describe which sub-object of an aggregate element is being
// compared against another access's aggregate element.
func isAggregate(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Struct, *types.Array:
		return true
	}
	return false
}

// analyzeStride implements the Stride Analyzer (C1, spec.md §4.1). It
// returns the element stride of ptr within loop l, or a zero Stride
// and the failure reason if none can be computed.
//
// sym is the symbolic-stride substitution map from the Symbolic
// Stride Rewriter (C2); callers pass the same map they intend to use
// for the rest of the analysis so that a declared symbolic stride of
// 1 is honored consistently.
func analyzeStride(ptr ssa.Value, l LoopInspector, sym map[ssa.Value]struct{}, scev ScalarEvolution, layout DataLayout) (Stride, StrideFailure) {
	elem := elemType(ptr)
	if elem == nil {
		return 0, strideNotAffine
	}
	if isAggregate(elem) {
		return 0, strideAggregateElem
	}

	e := rewriteSymbolicStride(scev.SCEV(ptr), sym, scev)
	rec, ok := e.AsAddRecurrence()
	if !ok {
		return 0, strideNotAffine
	}

	// Determine wrap safety (spec.md §4.1 step 3): the access may
	// not wrap the address space unless the recurrence carries a
	// no-wrap attribute, the defining computation was in-bounds, or
	// the address space is the default space (where wraparound is
	// undefined behavior and so, by assumption, does not happen).
	usedFallback := false
	safeFromWrap := rec.NoWrap
	if !safeFromWrap && rec.InBounds {
		safeFromWrap = true
		usedFallback = true
	}
	if !safeFromWrap && layout.AddressSpace(ptr) == 0 {
		safeFromWrap = true
		usedFallback = true
	}
	if !safeFromWrap {
		return 0, strideWraps
	}

	step, ok := rec.Step.IsConstant()
	if !ok {
		return 0, strideNonConstantStep
	}

	elemSize := layout.ElementSize(elem)
	if elemSize == 0 {
		return 0, strideNonDivisibleStep
	}
	if step%elemSize != 0 {
		return 0, strideNonDivisibleStep
	}
	stride := Stride(step / elemSize)

	// spec.md §4.1 step 5: if we relied on fallback reasoning
	// rather than an explicit no-wrap attribute, require the access
	// to be consecutive.
	if usedFallback && !stride.Consecutive() {
		return 0, strideWraps
	}

	return stride, strideOK
}
