// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loopaccess decides whether the loads and stores of an
// innermost loop can be executed in vectorized or interleaved form.
//
// The analysis partitions a loop's memory accesses into alias and
// dependence equivalence classes, uses a scalar-evolution oracle to
// compute symbolic stride and distance between accesses, and makes a
// pair-wise safety decision for every ordered pair of accesses that
// might alias. Where the decision can't be made statically but every
// pointer involved has a computable affine bound, the package builds
// a descriptor for a runtime range check instead of rejecting the
// loop outright.
//
// loopaccess does not itself understand the host's IR, loop
// structure, or aliasing: those are supplied by the collaborator
// interfaces in collab.go (LoopInspector, ScalarEvolution,
// AliasOracle, DataLayout, DominatorTree, ExpressionExpander). This
// mirrors rtcheck's separation between its own lock-order and
// value-tracking logic and the go/ssa, go/types and go/pointer
// packages it consumes.
package loopaccess
