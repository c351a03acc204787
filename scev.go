// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import "strconv"

// An Expr is an opaque symbolic expression produced by a
// ScalarEvolution oracle. loopaccess never introspects an Expr beyond
// the narrow capability surface declared here: this mirrors
// rtcheck/val.go's DynValue, which exposes exactly the operations
// (Equal, BinOp, UnOp) its callers need and nothing about how a
// dynamic value is actually represented.
//
// The three observable shapes are:
//
//   - a compile-time Constant,
//   - a value that IsInvariant with respect to the analyzed loop, and
//   - an AddRecurrence: a base value plus a per-iteration Step, with
//     an optional NoWrap guarantee.
//
// A given Expr may satisfy more than one predicate (a Constant is
// trivially loop-invariant); callers should check AddRecurrence first
// when they need stride/distance information.
type Expr interface {
	// IsConstant reports whether this expression has a known
	// compile-time integer value, returning it if so.
	IsConstant() (int64, bool)

	// IsInvariant reports whether this expression does not vary
	// across iterations of the loop it was computed for.
	IsInvariant() bool

	// AsAddRecurrence reports whether this expression is an affine
	// add-recurrence {base, +, step} over its loop, returning the
	// recurrence if so.
	AsAddRecurrence() (AddRecurrence, bool)

	// String returns a human-readable rendering, for diagnostics.
	String() string
}

// An AddRecurrence is the affine shape `Base + Step*i` over a loop's
// iteration counter i, as returned by Expr.AsAddRecurrence.
type AddRecurrence struct {
	Base Expr
	Step Expr

	// NoWrap is true if the oracle has proven the recurrence never
	// wraps the address space as i ranges over all loop iterations
	// (spec step: "the recurrence carries a no-wrap attribute").
	NoWrap bool

	// InBounds is true if the defining computation was an
	// in-bounds element-address computation (spec step 3,
	// fallback reasoning source 2).
	InBounds bool
}

// constExpr is a trivial Expr implementation for compile-time
// constants, used by the reference ScalarEvolution fake in
// internal/scevtest and by tests in this package.
type constExpr struct {
	v int64
}

func (c constExpr) IsConstant() (int64, bool)            { return c.v, true }
func (c constExpr) IsInvariant() bool                     { return true }
func (c constExpr) AsAddRecurrence() (AddRecurrence, bool) { return AddRecurrence{}, false }
func (c constExpr) String() string {
	return strconv.FormatInt(c.v, 10)
}

// ConstExpr returns an Expr representing the compile-time constant v.
// It is exported so collaborator implementations outside this module
// (and tests) can build constant Exprs without depending on
// internal/scevtest.
func ConstExpr(v int64) Expr { return constExpr{v} }
