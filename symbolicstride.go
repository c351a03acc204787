// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import "golang.org/x/tools/go/ssa"

// rewriteSymbolicStride implements the Symbolic Stride Rewriter (C2,
// spec.md §4.2). Some frontends mark a program variable as a
// "symbolic stride" whose value is promised to equal 1 at runtime;
// this substitutes each such parameter present in sym by the constant
// 1 before the expression is used for stride analysis. The
// substitution is purely semantic and never emits IR — it asks the
// oracle to fold the substituted expression, exactly as the oracle
// itself would fold any other constant-propagation opportunity.
//
// If sym is empty, or scev's Substitute finds none of the listed
// values present in e, e is returned unchanged: "the original
// pointer's symbolic form is preserved if the pointer is not listed
// in the map" (spec.md §4.2) generalizes to every parameter the
// expression doesn't mention.
func rewriteSymbolicStride(e Expr, sym map[ssa.Value]struct{}, scev ScalarEvolution) Expr {
	if len(sym) == 0 {
		return e
	}
	return scev.Substitute(e, sym)
}
