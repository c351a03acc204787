// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import "golang.org/x/tools/go/ssa"

// A RuntimeCheckEntry is one pointer's entry in a runtime-check
// descriptor (spec.md §3).
type RuntimeCheckEntry struct {
	Ptr      ssa.Value
	Start    Expr
	End      Expr
	IsWrite  bool
	DepSetID int
	AliasSet int
}

// needsCheck reports whether the pair (a, b) needs a runtime check,
// per spec.md §3: "at least one side writes, dep_set_id[i] !=
// dep_set_id[j], and alias_set_id[i] = alias_set_id[j]."
func needsCheck(a, b depID) bool {
	return (a.isWrite || b.isWrite) && a.depSetID != b.depSetID && a.aliasSet == b.aliasSet
}

// depID is the cheap, bounds-free projection of a tag the builder
// needs to decide which pairs require a runtime check: spec.md §4.4's
// id-assignment rule depends only on write/read direction and
// alias/dependence set membership, never on whether a pointer's
// bounds are actually computable. Computing this first lets the
// builder count comparisons and fail on the threshold (spec.md §4.4,
// §4.6) before paying for bounds computation on pointers that will
// never be compared.
type depID struct {
	tag      AccessTag
	isWrite  bool
	depSetID int
	aliasSet int
}

// assignDepSetIDs implements the dependence-set id assignment rule of
// spec.md §4.4: the union-find leader (remapped to 1,2,3…) if
// dependence checking was needed for this alias set (i.e. the
// classifier placed at least one of the set's tags in CheckDeps),
// otherwise a fresh id per pointer so every pair in the set is
// checked.
func assignDepSetIDs(aliasSets []AliasSet, uf *unionFind, checkDeps map[int]bool) []depID {
	var ids []depID
	for setIdx, set := range aliasSets {
		needed := false
		for _, t := range set.Accesses {
			if checkDeps[t.id] {
				needed = true
				break
			}
		}

		leaderID := map[int]int{}
		nextLeaderID := 1
		freshID := 0
		for _, t := range set.Accesses {
			var id int
			if needed {
				leader := uf.find(t.id)
				assigned, ok := leaderID[leader]
				if !ok {
					assigned = nextLeaderID
					nextLeaderID++
					leaderID[leader] = assigned
				}
				id = assigned
			} else {
				freshID++
				id = freshID
			}
			ids = append(ids, depID{tag: t, isWrite: t.IsWrite(), depSetID: id, aliasSet: setIdx})
		}
	}
	return ids
}

// requiredPairIDs returns every pair from ids that needs a runtime
// check (spec.md §3).
func requiredPairIDs(ids []depID) [][2]depID {
	var pairs [][2]depID
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if needsCheck(ids[i], ids[j]) {
				pairs = append(pairs, [2]depID{ids[i], ids[j]})
			}
		}
	}
	return pairs
}

// runtimeCheckResult is the outcome of attempting to build a runtime
// check descriptor.
type runtimeCheckResult struct {
	entries []RuntimeCheckEntry
	pairs   int
	needed  bool // whether any pair actually requires a runtime check
	ok      bool // false if bounds could not be computed or the threshold was exceeded
	reason  string
}

// buildRuntimeCheck implements the Runtime-Check Builder (C4, spec.md
// §4.4). shouldCheckStride, when true, is the Driver's retry mode
// that requires every pointer to have stride exactly +1 (spec.md
// §4.6).
func buildRuntimeCheck(aliasSets []AliasSet, uf *unionFind, checkDeps map[int]bool, l LoopInspector, sym map[ssa.Value]struct{}, scev ScalarEvolution, layout DataLayout, shouldCheckStride bool, threshold int) runtimeCheckResult {
	ids := assignDepSetIDs(aliasSets, uf, checkDeps)
	pairs := requiredPairIDs(ids)

	if len(pairs) == 0 {
		return runtimeCheckResult{needed: false, ok: true}
	}
	if len(pairs) > threshold {
		return runtimeCheckResult{needed: true, pairs: len(pairs), ok: false, reason: "too many runtime-check comparisons"}
	}

	// Only pointers that appear in a required pair need computed
	// bounds (spec.md §4.4: entries are appended "for those with
	// computable bounds"; a pointer that never appears in a
	// required pair never needs one).
	needed := map[int]depID{}
	for _, p := range pairs {
		needed[p[0].tag.id] = p[0]
		needed[p[1].tag.id] = p[1]
	}

	backedgeCount, haveCount := scev.BackedgeTakenCount(l)
	if !haveCount {
		return runtimeCheckResult{needed: true, pairs: len(pairs), ok: false, reason: "non-computable bounds: no backedge-taken count"}
	}

	// Walk ids rather than the needed map so entries come out in
	// alias-set order, then access order within each set.
	var entries []RuntimeCheckEntry
	for _, d := range ids {
		if _, ok := needed[d.tag.id]; !ok {
			continue
		}
		ptr := d.tag.Pointer()
		stride, failure := analyzeStride(ptr, l, sym, scev, layout)
		if failure != strideOK {
			return runtimeCheckResult{needed: true, pairs: len(pairs), ok: false, reason: "non-computable bounds: " + failure.String()}
		}
		if shouldCheckStride && stride != 1 {
			return runtimeCheckResult{needed: true, pairs: len(pairs), ok: false, reason: "runtime check requires unit stride"}
		}

		e := rewriteSymbolicStride(scev.SCEV(ptr), sym, scev)
		rec, ok := e.AsAddRecurrence()
		if !ok {
			return runtimeCheckResult{needed: true, pairs: len(pairs), ok: false, reason: "non-computable bounds: not affine"}
		}
		end := scev.EvaluateAtIteration(e, backedgeCount)

		entries = append(entries, RuntimeCheckEntry{
			Ptr:      ptr,
			Start:    rec.Base,
			End:      end,
			IsWrite:  d.isWrite,
			DepSetID: d.depSetID,
			AliasSet: d.aliasSet,
		})
	}

	// Reject the loop if any required pair compares pointers in
	// different address spaces (spec.md §3, §4.4).
	for _, p := range pairs {
		if layout.AddressSpace(p[0].tag.Pointer()) != layout.AddressSpace(p[1].tag.Pointer()) {
			return runtimeCheckResult{needed: true, pairs: len(pairs), ok: false, reason: "cross-address-space compare"}
		}
	}

	return runtimeCheckResult{entries: entries, pairs: len(pairs), needed: true, ok: true}
}
