// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import "golang.org/x/tools/go/ssa"

// EmitRuntimeCheck materializes entries as IR at the given insertion
// point, via expand, and returns the single boolean ssa.Value that is
// true if and only if it is safe to run the vectorized loop body
// (spec.md §6): for every required pair, the ranges are disjoint iff
// (end_i <= start_j) || (end_j <= start_i); those per-pair
// disjointness checks are AND-combined across every required pair
// (every pair must be disjoint for the loop to be safe), starting
// from a true constant anchor so that a descriptor with zero required
// pairs still returns a valid always-true value instead of a nil one.
//
// Emission itself performs no aliasing or bounds reasoning of its
// own: the pairs to compare were already decided by the Runtime-Check
// Builder (spec.md §4.4). EmitRuntimeCheck only composes the
// comparisons expand hands back.
func EmitRuntimeCheck(entries []RuntimeCheckEntry, expand ExpressionExpander, at InsertionPoint) ssa.Value {
	depIDs := make([]depID, len(entries))
	for i, e := range entries {
		depIDs[i] = depID{isWrite: e.IsWrite, depSetID: e.DepSetID, aliasSet: e.AliasSet}
	}

	result := expand.Expand(ConstExpr(1), at) // true anchor

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if !needsCheck(depIDs[i], depIDs[j]) {
				continue
			}
			startI := expand.Expand(entries[i].Start, at)
			endI := expand.Expand(entries[i].End, at)
			startJ := expand.Expand(entries[j].Start, at)
			endJ := expand.Expand(entries[j].End, at)

			aEntirelyBeforeB := expand.LessOrEqual(endI, startJ, at)
			bEntirelyBeforeA := expand.LessOrEqual(endJ, startI, at)
			disjoint := expand.Or(aEntirelyBeforeB, bEntirelyBeforeA, at)
			result = expand.And(result, disjoint, at)
		}
	}

	return result
}
