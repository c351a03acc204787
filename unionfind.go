// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

// A unionFind is the dependence-candidate equivalence relation over
// access tags (spec.md §3 "Dependence-candidate union-find"). Tags
// are identified by their arena index (AccessTag.id), not by pointer
// or by value, so alias sets (which refer to the same tags by the
// same index) and the union-find never need owning back-pointers
// between them (spec.md §9 "Cyclic / shared ownership of access
// tags").
//
// Path compression keeps Find cheap; this package never needs union
// by rank since the number of tags per loop is small and leaders only
// need to be deterministic, not balanced.
type unionFind struct {
	parent []int
}

// newUnionFind returns a union-find over n singleton classes, one per
// tag index in [0, n).
func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent}
}

// find returns the deterministic leader of i's class. The leader of a
// class is always the smallest index ever unioned into it, because
// union always attaches the larger-rooted tree under the
// smaller-rooted one; callers that need a leader remapped to a dense
// id space (spec.md §4.4: "remapped to 1,2,3…") do so themselves.
func (u *unionFind) find(i int) int {
	root := i
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// Path compression.
	for u.parent[i] != root {
		u.parent[i], i = root, u.parent[i]
	}
	return root
}

// union merges the classes containing a and b, returning the new
// leader.
func (u *unionFind) union(a, b int) int {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return ra
	}
	if ra > rb {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	return ra
}

// sameClass reports whether a and b are currently in the same class.
func (u *unionFind) sameClass(a, b int) bool {
	return u.find(a) == u.find(b)
}

// classesOf groups every index in ids by its current leader, keyed by
// that leader. The returned map has no defined iteration order.
func (u *unionFind) classesOf(ids []int) map[int][]int {
	out := make(map[int][]int)
	for _, id := range ids {
		r := u.find(id)
		out[r] = append(out[r], id)
	}
	return out
}
