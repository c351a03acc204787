// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"go/token"
	"sort"

	"golang.org/x/tools/go/ssa"
)

// LoopAccessInfo is the public result of analyzing one loop (spec.md
// §3).
type LoopAccessInfo struct {
	// CanVectorize reports whether the loop's memory accesses permit
	// vectorization, either unconditionally or behind a runtime
	// check.
	CanVectorize bool

	// NeedRuntimeCheck reports whether vectorization requires
	// emitting the runtime pointer-range check described by
	// RuntimeDescriptor.
	NeedRuntimeCheck bool

	// RuntimeDescriptor lists the pointer ranges a runtime check
	// must compare, if NeedRuntimeCheck is true.
	RuntimeDescriptor []RuntimeCheckEntry

	// MaxSafeDistanceBytes is the smallest positive-distance
	// dependence distance observed across every checked pair, in
	// bytes; it upper-bounds the vector width that can safely be
	// used without a runtime check. It is meaningless if
	// CanVectorize is false.
	MaxSafeDistanceBytes int64

	// NumLoads and NumStores count the simple loads and stores the
	// Driver gathered from the loop body.
	NumLoads  int
	NumStores int

	// Diagnostic explains why CanVectorize is false, or is "" if
	// CanVectorize is true.
	Diagnostic string
}

// A Driver runs the Loop Analysis Driver (C6, spec.md §4.6): it
// gathers a loop's memory accesses in program order, enforces the
// loop-shape preconditions, and orchestrates C1-C5 into a final
// LoopAccessInfo.
type Driver struct {
	Inspector LoopInspector
	SCEV      ScalarEvolution
	Alias     AliasOracle
	Layout    DataLayout
	Dom       DominatorTree

	// SymbolicStrides is passed through to the Symbolic Stride
	// Rewriter (C2) unchanged for every pointer this Driver
	// analyzes.
	SymbolicStrides map[ssa.Value]struct{}

	Config Config
}

// NewDriver returns a Driver ready to analyze the loop described by l.
func NewDriver(l LoopInspector, scev ScalarEvolution, alias AliasOracle, layout DataLayout, dom DominatorTree, sym map[ssa.Value]struct{}, cfg Config) *Driver {
	return &Driver{Inspector: l, SCEV: scev, Alias: alias, Layout: layout, Dom: dom, SymbolicStrides: sym, Config: cfg}
}

func reject(reason string) LoopAccessInfo {
	var sink diagnosticSink
	sink.report("%s", reason)
	return LoopAccessInfo{CanVectorize: false, Diagnostic: sink.get()}
}

// Analyze runs the full loop access analysis and returns its result.
func (d *Driver) Analyze() LoopAccessInfo {
	if !d.Inspector.IsInnermost() {
		return reject("loop is not innermost")
	}
	if len(d.Inspector.Backedges()) != 1 {
		return reject("loop does not have exactly one back edge")
	}
	latch, ok := d.Inspector.Latch()
	if !ok {
		return reject("loop does not have a unique latch")
	}
	exiting, ok := d.Inspector.ExitingBlock()
	if !ok {
		return reject("loop does not have a unique exiting block")
	}
	if exiting != latch {
		return reject("loop is not bottom-tested")
	}
	if _, ok := d.SCEV.BackedgeTakenCount(d.Inspector); !ok {
		return reject("loop does not have a computable backedge-taken count")
	}

	ops, numLoads, numStores, reason := d.gatherOps()
	if reason != "" {
		return reject(reason)
	}

	// Short circuit: a loop with no stores has no cross-iteration
	// write conflicts at all (spec.md §4.6).
	if numStores == 0 {
		return LoopAccessInfo{CanVectorize: true, NumLoads: numLoads, NumStores: numStores}
	}

	// Short circuit: exactly one written pointer and no reads means
	// there is nothing for the write to conflict with.
	if numStores == 1 && numLoads == 0 {
		return LoopAccessInfo{CanVectorize: true, NumLoads: numLoads, NumStores: numStores}
	}

	// Short circuit: a frontend-annotated parallel loop has no
	// cross-iteration memory dependences by construction, so
	// dependence checking is skipped entirely.
	if d.Inspector.Parallel() {
		return LoopAccessInfo{CanVectorize: true, NumLoads: numLoads, NumStores: numStores}
	}

	return d.analyzeMain(ops, numLoads, numStores)
}

// gatherOps walks the loop's blocks in program order, classifying
// every instruction per spec.md §4.6, and returns the resulting
// sequence of loads and stores. reason is non-empty if an instruction
// forced rejection.
func (d *Driver) gatherOps() (ops []MemOp, numLoads, numStores int, reason string) {
	blocks := append([]*ssa.BasicBlock(nil), d.Inspector.Blocks()...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })

	parallel := d.Inspector.Parallel()

	for _, blk := range blocks {
		for _, instr := range blk.Instrs {
			switch v := instr.(type) {
			case *ssa.Store:
				if d.SCEV.IsLoopInvariant(d.SCEV.SCEV(v.Addr), d.Inspector) {
					return nil, 0, 0, "store to a loop-invariant address"
				}
				ops = append(ops, Store{Ptr: v.Addr, Val: v.Val, Position: v.Pos(), Blk: blk})
				numStores++

			case *ssa.UnOp:
				if v.Op != token.MUL {
					continue
				}
				ops = append(ops, Load{Ptr: v.X, Position: v.Pos(), Blk: blk})
				numLoads++

			case *ssa.Call:
				if isSafeIntrinsic(v) {
					continue
				}
				if !parallel {
					return nil, 0, 0, "non-simple memory access (call)"
				}

			case *ssa.MapUpdate, *ssa.Send, *ssa.Go, *ssa.Defer, *ssa.Panic:
				if !parallel {
					return nil, 0, 0, "non-simple memory access"
				}
			}
		}
	}
	return ops, numLoads, numStores, ""
}

// isSafeIntrinsic reports whether call is a recognized side-effect-
// free intrinsic: in go/ssa, the built-in functions len and cap
// (ssa.Builtin) never read or write through a user pointer, even
// though they formally take an argument that may itself be a pointer-
// bearing slice or map value.
func isSafeIntrinsic(call *ssa.Call) bool {
	b, ok := call.Common().Value.(*ssa.Builtin)
	if !ok {
		return false
	}
	switch b.Name() {
	case "len", "cap":
		return true
	}
	return false
}

// analyzeMain implements spec.md §4.6's main path and retry path.
func (d *Driver) analyzeMain(ops []MemOp, numLoads, numStores int) LoopAccessInfo {
	tags := newAccessTags(ops)
	tagByID := make(map[int]AccessTag, len(tags))
	for _, t := range tags {
		tagByID[t.id] = t
	}

	cr := classify(tags, d.Inspector, d.Alias, d.Dom, d.SymbolicStrides, d.SCEV, d.Layout)
	checkDeps := cr.checkDeps.AppendTo(nil)
	checkDepsSet := make(map[int]bool, len(checkDeps))
	for _, id := range checkDeps {
		checkDepsSet[id] = true
	}

	threshold := d.Config.threshold()

	checker := newDependenceChecker(d.SCEV, d.Layout, d.Config)
	verdict := checker.checkClasses(checkDeps, cr.uf, tagByID, d.Inspector, d.SymbolicStrides)

	switch verdict {
	case Safe:
		rc := buildRuntimeCheck(cr.aliasSets, cr.uf, checkDepsSet, d.Inspector, d.SymbolicStrides, d.SCEV, d.Layout, false, threshold)
		if !rc.needed {
			return LoopAccessInfo{
				CanVectorize:         true,
				MaxSafeDistanceBytes: checker.maxSafeDistance,
				NumLoads:             numLoads,
				NumStores:            numStores,
			}
		}
		if !rc.ok {
			return reject(rc.reason)
		}
		return LoopAccessInfo{
			CanVectorize:         true,
			NeedRuntimeCheck:     true,
			RuntimeDescriptor:    rc.entries,
			MaxSafeDistanceBytes: checker.maxSafeDistance,
			NumLoads:             numLoads,
			NumStores:            numStores,
		}

	case UnsafeRetryWithRuntime:
		rc := buildRuntimeCheck(cr.aliasSets, cr.uf, checkDepsSet, d.Inspector, d.SymbolicStrides, d.SCEV, d.Layout, true, threshold)
		if !rc.ok {
			return reject("non-constant dependence distance, and " + rc.reason)
		}
		return LoopAccessInfo{
			CanVectorize:      true,
			NeedRuntimeCheck:  rc.needed,
			RuntimeDescriptor: rc.entries,
			NumLoads:          numLoads,
			NumStores:         numStores,
		}

	default: // UnsafeFatal
		return reject("unsafe dependence between memory accesses")
	}
}
