// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"golang.org/x/tools/container/intsets"
	"golang.org/x/tools/go/ssa"
)

// classifyResult is the output of the Access Classifier (C3, spec.md
// §4.3): the alias-set partition, the dependence union-find over all
// tags, and CheckDeps, the set of tag ids that must later be
// pair-checked by the Dependence Checker.
type classifyResult struct {
	aliasSets []AliasSet
	uf        *unionFind
	checkDeps *intsets.Sparse
}

// classify implements the Access Classifier. tags must already carry
// their Index and id (see newAccessTags); sym and scev are used to
// determine which read-only tags are consecutive (spec.md §4.3: "A
// pointer is marked read-only if ... its access is consecutive").
func classify(tags []AccessTag, l LoopInspector, alias AliasOracle, dom DominatorTree, sym map[ssa.Value]struct{}, scev ScalarEvolution, layout DataLayout) classifyResult {
	// Attach TBAA metadata, discarding it for accesses in blocks
	// that do not post-dominate the loop's latch (spec.md §4.3:
	// "metadata is discarded for pointers in blocks that do not
	// post-dominate the loop's latch, because the metadata may be
	// under a predicate").
	latch, haveLatch := l.Latch()
	for _, t := range tags {
		md := t.Op.TBAA()
		if md == nil {
			continue
		}
		if haveLatch && !dom.PostDominates(t.Op.Block(), latch) {
			continue
		}
		alias.AttachTBAA(t, md)
	}

	aliasSets := alias.ComputeAliasSets(tags)
	uf := newUnionFind(len(tags))
	checkDeps := &intsets.Sparse{}

	// Determine which tags are read-only: no Store to the same
	// pointer exists anywhere in the loop, and the access is
	// consecutive (spec.md §4.3: "Non-consecutive reads are
	// conservatively treated as read-write").
	written := map[ssa.Value]bool{}
	for _, t := range tags {
		if t.IsWrite() {
			written[t.Pointer()] = true
		}
	}
	readOnly := func(t AccessTag) bool {
		if t.IsWrite() {
			return false
		}
		if written[t.Pointer()] {
			return false
		}
		s, reason := analyzeStride(t.Pointer(), l, sym, scev, layout)
		_ = reason
		return s.Consecutive()
	}

	for _, set := range aliasSets {
		// First pass: writes and non-read-only reads. Merge each
		// new tag with the previously recorded tag for the same
		// underlying object.
		lastForObject := map[ssa.Value]int{}
		hasWrite := false
		for _, t := range set.Accesses {
			if readOnly(t) {
				continue
			}
			if t.IsWrite() {
				hasWrite = true
			}
			checkDeps.Insert(t.id)
			if prevID, ok := lastForObject[t.Pointer()]; ok {
				uf.union(prevID, t.id)
			} else {
				// Look for any other tag in this set whose
				// pointer is the same underlying object
				// (spec.md: "merge the new tag with the
				// previously recorded last tag for that
				// object").
				for obj, id := range lastForObject {
					if sameUnderlyingObject(obj, t.Pointer()) {
						uf.union(id, t.id)
						break
					}
				}
			}
			lastForObject[t.Pointer()] = t.id
		}

		// Second pass: read-only pointers. A read-only access needs
		// a dependence check only if the alias set already has a
		// write (spec.md §4.3); when it does, it is merged into the
		// write's class the same way first pass merges same-object
		// tags, so the Dependence Checker actually compares it
		// against the write instead of sitting in its own untouched
		// singleton class.
		if hasWrite {
			for _, t := range set.Accesses {
				if !readOnly(t) {
					continue
				}
				checkDeps.Insert(t.id)
				if prevID, ok := lastForObject[t.Pointer()]; ok {
					uf.union(prevID, t.id)
				} else {
					for obj, id := range lastForObject {
						if sameUnderlyingObject(obj, t.Pointer()) {
							uf.union(id, t.id)
							break
						}
					}
				}
				lastForObject[t.Pointer()] = t.id
			}
		}
	}

	return classifyResult{aliasSets, uf, checkDeps}
}

// newAccessTags assigns program-order Index and arena id to each
// MemOp, in the order given (the driver is responsible for gathering
// ops in program order, per spec.md §4.6).
func newAccessTags(ops []MemOp) []AccessTag {
	tags := make([]AccessTag, len(ops))
	for i, op := range ops {
		tags[i] = AccessTag{Op: op, Index: i, id: i}
	}
	return tags
}
