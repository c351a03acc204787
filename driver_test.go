// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"

	"github.com/aclements/loopaccess/internal/scevtest"
)

func simpleBackedgeLoop(hdr *ssa.BasicBlock, instrs []ssa.Instruction, parallel bool) *scevtest.Loop {
	hdr.Index = 0
	hdr.Instrs = instrs
	return &scevtest.Loop{
		AllBlocks:    []*ssa.BasicBlock{hdr},
		Hdr:          hdr,
		Innermost:    true,
		BackedgeList: []Backedge{{From: hdr, To: hdr}},
		LatchBlk:     hdr,
		HaveLatch:    true,
		ExitBlk:      hdr,
		HaveExit:     true,
		IsParallel:   parallel,
	}
}

func TestDriverRejectsNonInnermost(t *testing.T) {
	l := &scevtest.Loop{Innermost: false}
	d := NewDriver(l, scevtest.NewSCEV(), &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})
	info := d.Analyze()
	if info.CanVectorize {
		t.Error("a loop with a nested loop must be rejected")
	}
}

func TestDriverRejectsMultipleBackedges(t *testing.T) {
	hdr := &ssa.BasicBlock{}
	l := &scevtest.Loop{
		Innermost:    true,
		BackedgeList: []Backedge{{From: hdr, To: hdr}, {From: hdr, To: hdr}},
	}
	d := NewDriver(l, scevtest.NewSCEV(), &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})
	info := d.Analyze()
	if info.CanVectorize {
		t.Error("a loop with more than one back edge must be rejected")
	}
}

func TestDriverNoStoresVectorizes(t *testing.T) {
	ptr := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	hdr := &ssa.BasicBlock{}
	instrs := []ssa.Instruction{&ssa.UnOp{Op: token.MUL, X: ptr}}
	l := simpleBackedgeLoop(hdr, instrs, false)
	scev := scevtest.NewSCEV().WithBackedgeCount(100)
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})

	info := d.Analyze()
	if !info.CanVectorize {
		t.Fatalf("a load-only loop must vectorize, got diagnostic %q", info.Diagnostic)
	}
	if info.NumLoads != 1 || info.NumStores != 0 {
		t.Errorf("NumLoads=%d NumStores=%d, want 1, 0", info.NumLoads, info.NumStores)
	}
}

func TestDriverSingleStoreNoLoadsVectorizes(t *testing.T) {
	ptr := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	val := ssa.NewConst(nil, types.Typ[types.Int32])
	hdr := &ssa.BasicBlock{}
	instrs := []ssa.Instruction{&ssa.Store{Addr: ptr, Val: val}}
	l := simpleBackedgeLoop(hdr, instrs, false)
	scev := scevtest.NewSCEV().WithBackedgeCount(100)
	scev.Exprs[ptr] = scevtest.Recurrence(scevtest.Invariant(), ConstExpr(4), false, true)
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})

	info := d.Analyze()
	if !info.CanVectorize {
		t.Fatalf("a single store with no loads must vectorize, got diagnostic %q", info.Diagnostic)
	}
}

func TestDriverRejectsStoreToLoopInvariantAddress(t *testing.T) {
	ptr := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	other := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	val := ssa.NewConst(nil, types.Typ[types.Int32])
	hdr := &ssa.BasicBlock{}
	// Two stores: the second forces analyzeMain's path since
	// numStores>1, but rejection happens earlier in gatherOps.
	instrs := []ssa.Instruction{
		&ssa.Store{Addr: ptr, Val: val},
		&ssa.Store{Addr: other, Val: val},
	}
	l := simpleBackedgeLoop(hdr, instrs, false)
	scev := scevtest.NewSCEV().WithBackedgeCount(100)
	// Leaving ptr/other unregistered in scev.Exprs means SCEV()
	// returns invariantExpr{}, which IsLoopInvariant reports true for.
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})

	info := d.Analyze()
	if info.CanVectorize {
		t.Error("a store to a loop-invariant address must be rejected")
	}
}

func TestDriverParallelLoopSkipsDependenceChecking(t *testing.T) {
	pa, pb := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32])), ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	val := ssa.NewConst(nil, types.Typ[types.Int32])
	hdr := &ssa.BasicBlock{}
	instrs := []ssa.Instruction{
		&ssa.Store{Addr: pa, Val: val},
		&ssa.Store{Addr: pb, Val: val},
		&ssa.UnOp{Op: token.MUL, X: pa},
	}
	l := simpleBackedgeLoop(hdr, instrs, true)
	scev := scevtest.NewSCEV().WithBackedgeCount(100)
	// Give both pointers a real recurrence (not loop-invariant) so
	// gatherOps accepts their stores; the Parallel() short circuit
	// then returns before classify or checkPair run.
	scev.Exprs[pa] = scevtest.Recurrence(scevtest.Invariant(), ConstExpr(4), false, true)
	scev.Exprs[pb] = scevtest.Recurrence(scevtest.Invariant(), ConstExpr(4), false, true)
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})

	info := d.Analyze()
	if !info.CanVectorize {
		t.Fatalf("an annotated-parallel loop must vectorize unconditionally, got diagnostic %q", info.Diagnostic)
	}
}

func TestDriverRejectsUnsafeCall(t *testing.T) {
	hdr := &ssa.BasicBlock{}
	instrs := []ssa.Instruction{
		&ssa.Call{Call: ssa.CallCommon{Value: &ssa.Builtin{}}},
	}
	l := simpleBackedgeLoop(hdr, instrs, false)
	scev := scevtest.NewSCEV().WithBackedgeCount(100)
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})

	info := d.Analyze()
	if info.CanVectorize {
		t.Error("a call to an unrecognized function must be rejected")
	}
}

func TestDriverRejectsNonBottomTestedLoop(t *testing.T) {
	hdr := &ssa.BasicBlock{}
	exiting := &ssa.BasicBlock{}
	l := &scevtest.Loop{
		Hdr:          hdr,
		AllBlocks:    []*ssa.BasicBlock{hdr, exiting},
		Innermost:    true,
		BackedgeList: []Backedge{{From: hdr, To: hdr}},
		LatchBlk:     hdr,
		HaveLatch:    true,
		ExitBlk:      exiting,
		HaveExit:     true,
	}
	d := NewDriver(l, scevtest.NewSCEV().WithBackedgeCount(10), &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})
	info := d.Analyze()
	if info.CanVectorize {
		t.Error("a loop whose exiting block isn't its latch must be rejected")
	}
}

func TestDriverRejectsNonComputableBackedgeCount(t *testing.T) {
	hdr := &ssa.BasicBlock{}
	l := simpleBackedgeLoop(hdr, nil, false)
	scev := scevtest.NewSCEV() // HaveBackedgeCount defaults to false
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})
	info := d.Analyze()
	if info.CanVectorize {
		t.Error("a loop without a computable backedge-taken count must be rejected")
	}
}
