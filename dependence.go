// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"sort"

	"golang.org/x/tools/go/ssa"
)

// PairVerdict is the outcome of a pair-wise dependence check
// (spec.md §9 "Retry-with-runtime-check control flow"): rather than a
// boolean plus a side-channel flag on the checker, a pair check
// returns one of these three outcomes explicitly, and the Driver
// dispatches on it.
type PairVerdict int

const (
	Safe PairVerdict = iota
	UnsafeFatal
	UnsafeRetryWithRuntime
)

// dependenceChecker implements the Dependence Checker (C5, spec.md
// §4.5). It tracks max safe distance across every pair it inspects
// (spec.md §3 invariant: monotonically non-increasing, UINT_MAX
// initially).
type dependenceChecker struct {
	scev   ScalarEvolution
	layout DataLayout
	cfg    Config

	maxSafeDistance int64 // bytes; maxSafeDistanceInitial stands in for UINT_MAX
}

func newDependenceChecker(scev ScalarEvolution, layout DataLayout, cfg Config) *dependenceChecker {
	return &dependenceChecker{scev: scev, layout: layout, cfg: cfg, maxSafeDistance: maxSafeDistanceInitial}
}

// maxSafeDistanceInitial stands in for spec.md's UINT_MAX: the
// largest distance value the checker will ever need to compare
// against, well above any real stride*count product.
const maxSafeDistanceInitial = int64(1) << 62

// checkPair implements spec.md §4.5 steps 1-7 for the ordered pair (a
// occurs strictly before b in program order, and both are in the same
// union-find class).
func (d *dependenceChecker) checkPair(a, b AccessTag, l LoopInspector, sym map[ssa.Value]struct{}) PairVerdict {
	// Step 1: two reads are always safe.
	if !a.IsWrite() && !b.IsWrite() {
		return Safe
	}

	// Step 2: different address spaces are unsafe.
	if d.layout.AddressSpace(a.Pointer()) != d.layout.AddressSpace(b.Pointer()) {
		return UnsafeFatal
	}

	strideA, failA := analyzeStride(a.Pointer(), l, sym, d.scev, d.layout)
	strideB, failB := analyzeStride(b.Pointer(), l, sym, d.scev, d.layout)
	if failA != strideOK || failB != strideOK {
		return UnsafeFatal
	}

	// Step 3: if stride(A) < 0, swap A and B (invert the direction
	// of analysis).
	if strideA < 0 {
		a, b = b, a
		strideA, strideB = strideB, strideA
	}

	// Step 4: require equal, non-zero strides.
	if strideA == 0 || strideA != strideB {
		return UnsafeFatal
	}

	// Step 5: compute Dist = sink_scev - src_scev. If not constant,
	// this is the retry-with-runtime-check case.
	srcE := rewriteSymbolicStride(d.scev.SCEV(a.Pointer()), sym, d.scev)
	sinkE := rewriteSymbolicStride(d.scev.SCEV(b.Pointer()), sym, d.scev)
	distE := d.scev.Subtract(sinkE, srcE)
	dist, ok := distE.IsConstant()
	if !ok {
		return UnsafeRetryWithRuntime
	}

	elemA := elemType(a.Pointer())
	elemB := elemType(b.Pointer())
	tA := d.layout.ElementSize(elemA)
	tB := d.layout.ElementSize(elemB)
	sameType := elemA != nil && elemB != nil && tA == tB

	switch {
	case dist < 0:
		return d.checkNegativeDistance(a, b, -dist, tA, sameType)
	case dist == 0:
		if sameType {
			return Safe
		}
		return UnsafeFatal
	default:
		return d.checkPositiveDistance(a, b, dist, tA, sameType)
	}
}

// checkNegativeDistance implements spec.md §4.5 step 6, d < 0: an
// anti-dependence (write precedes read in the recurrence direction).
// absDist is the absolute value of the distance in bytes.
func (d *dependenceChecker) checkNegativeDistance(a, b AccessTag, absDist int64, typeSize int64, sameType bool) PairVerdict {
	if !a.IsWrite() {
		// The earlier access (in recurrence direction) is not the
		// write: this is not the anti-dependence case the spec
		// singles out, so there's nothing further to reject.
		return Safe
	}
	if !sameType {
		return UnsafeFatal
	}
	if d.breaksForwarding(absDist, typeSize) {
		return UnsafeFatal
	}
	return Safe
}

// checkPositiveDistance implements spec.md §4.5 step 6, d > 0.
func (d *dependenceChecker) checkPositiveDistance(a, b AccessTag, dist int64, typeSize int64, sameType bool) PairVerdict {
	if !sameType {
		// "the analyzer trusts the type divergence"
		return Safe
	}
	twoT := 2 * typeSize
	if dist < twoT {
		return UnsafeFatal
	}
	if twoT > d.maxSafeDistance {
		return UnsafeFatal
	}
	required := typeSize * int64(d.cfg.forcedInterleave()) * int64(d.cfg.forcedVectorFactor())
	if dist < required {
		return UnsafeFatal
	}
	if !a.IsWrite() {
		// True flow dependence (read precedes write): reject if
		// forwarding would be broken.
		if d.breaksForwarding(dist, typeSize) {
			return UnsafeFatal
		}
	}
	if dist < d.maxSafeDistance {
		d.maxSafeDistance = dist
	}
	return Safe
}

// breaksForwarding implements spec.md §4.5.1: store-to-load
// forwarding. It scans candidate vector widths vf = 2T, 4T, 8T, ...
// up to min(maxSafeDistance, MaxVectorWidthBytes). A width vf is only
// safe if the whole vector fits within the dependence distance dist
// (otherwise the store and the load it feeds would land in the same
// vector op, which needs hardware forwarding support this analysis
// doesn't assume); the search stops at the first vf that doesn't fit,
// whose predecessor's width is the effective maximum, and reports
// whether that maximum falls below 2T.
func (d *dependenceChecker) breaksForwarding(dist, typeSize int64) bool {
	limit := d.maxSafeDistance
	if maxVecBytes := int64(MaxVectorWidthBytes); maxVecBytes < limit {
		limit = maxVecBytes
	}

	maxWidth := limit
	for vf := 2 * typeSize; vf <= limit; vf *= 2 {
		if vf > dist {
			maxWidth = vf / 2
			break
		}
		maxWidth = vf
	}
	return maxWidth < 2*typeSize
}

// checkClasses implements the class traversal of spec.md §4.5.2: for
// each tag id in checkDeps, take its union-find class, and for every
// pair of distinct members, check the pair in program order (smaller
// Index first). It stops and returns the first unsafe verdict, or
// Safe if no pair was unsafe. tagByID must map every id reachable
// from checkDeps or the union-find classes it touches back to its
// AccessTag.
func (d *dependenceChecker) checkClasses(checkDeps []int, uf *unionFind, tagByID map[int]AccessTag, l LoopInspector, sym map[ssa.Value]struct{}) PairVerdict {
	seenClass := map[int]bool{}
	for _, id := range checkDeps {
		leader := uf.find(id)
		if seenClass[leader] {
			continue
		}
		seenClass[leader] = true

		var members []int
		for other := range tagByID {
			if uf.find(other) == leader {
				members = append(members, other)
			}
		}
		// Range over tagByID above is unordered; sort by program order
		// so the pairwise scan below (and checkPositiveDistance's
		// mutation of d.maxSafeDistance, which breaksForwarding reads
		// back) is deterministic across runs, not just across pairs.
		sort.Slice(members, func(i, j int) bool {
			return tagByID[members[i]].Index < tagByID[members[j]].Index
		})

		for i := 0; i < len(members); i++ {
			for j := 0; j < len(members); j++ {
				if members[i] == members[j] {
					continue
				}
				a, b := tagByID[members[i]], tagByID[members[j]]
				if a.Index > b.Index {
					continue // only check with the smaller index first
				}
				if v := d.checkPair(a, b, l, sym); v != Safe {
					return v
				}
			}
		}
	}
	return Safe
}
