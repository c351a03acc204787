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

// driverScenario runs a Driver over a single-block, bottom-tested,
// non-parallel loop made of instrs.
func driverScenario(instrs []ssa.Instruction, scev *scevtest.SCEV) LoopAccessInfo {
	hdr := &ssa.BasicBlock{Index: 0, Instrs: instrs}
	l := &scevtest.Loop{
		AllBlocks:    []*ssa.BasicBlock{hdr},
		Hdr:          hdr,
		Innermost:    true,
		BackedgeList: []Backedge{{From: hdr, To: hdr}},
		LatchBlk:     hdr,
		HaveLatch:    true,
		ExitBlk:      hdr,
		HaveExit:     true,
	}
	d := NewDriver(l, scev, &scevtest.Alias{}, &scevtest.Layout{DefaultSize: 4}, &scevtest.Dom{}, nil, Config{})
	return d.Analyze()
}

// TestScenarioS1SelfUpdateVectorizes models `t = a[i]; a[i] = t + 1`:
// a single pointer read and written at the same offset every
// iteration, driven end to end through Driver.Analyze.
func TestScenarioS1SelfUpdateVectorizes(t *testing.T) {
	p := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	val := ssa.NewConst(nil, types.Typ[types.Int32])
	instrs := []ssa.Instruction{
		&ssa.UnOp{Op: token.MUL, X: p},
		&ssa.Store{Addr: p, Val: val},
	}
	scev := scevtest.NewSCEV().WithBackedgeCount(100)
	scev.Exprs[p] = scevtest.Recurrence(ConstExpr(0), ConstExpr(4), false, true)

	info := driverScenario(instrs, scev)
	if !info.CanVectorize {
		t.Fatalf("S1: CanVectorize = false, diagnostic %q, want true", info.Diagnostic)
	}
	if info.NeedRuntimeCheck {
		t.Error("S1: NeedRuntimeCheck = true, want false")
	}
	if info.MaxSafeDistanceBytes != maxSafeDistanceInitial {
		t.Errorf("S1: MaxSafeDistanceBytes = %d, want the UINT_MAX stand-in %d", info.MaxSafeDistanceBytes, maxSafeDistanceInitial)
	}
}

// scenarioTag builds one access tag for the scenario tests below: a
// fresh pointer value of type *int32, a recurrence registered against
// it at the given byte base, and the resulting AccessTag.
func scenarioTag(scev *scevtest.SCEV, isWrite bool, index, id int, base int64) AccessTag {
	p := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	scev.Exprs[p] = scevtest.Recurrence(ConstExpr(base), ConstExpr(4), false, true)
	var op MemOp
	if isWrite {
		op = Store{Ptr: p}
	} else {
		op = Load{Ptr: p}
	}
	return AccessTag{Op: op, Index: index, id: id}
}

// TestScenarioS2ForwardingClampsWidth models
// `a[i] = a[i-8] ^ a[i-3]` (32-bit elements): two reads at different
// offsets from the same recurring object as the write, the
// narrower-distance pair's forwarding limit overriding the wider
// pair's. Exercises checkClasses directly (driven map-iteration order
// differs run to run; the loop below re-derives the class fresh 20
// times within this one test run to flush out any remaining ordering
// sensitivity rather than relying on a single random map layout).
func TestScenarioS2ForwardingClampsWidth(t *testing.T) {
	for i := 0; i < 20; i++ {
		scev := scevtest.NewSCEV()
		tagL1 := scenarioTag(scev, false, 0, 0, -32) // a[i-8]
		tagL2 := scenarioTag(scev, false, 1, 1, -12) // a[i-3]
		tagS := scenarioTag(scev, true, 2, 2, 0)     // a[i]
		tagByID := map[int]AccessTag{0: tagL1, 1: tagL2, 2: tagS}

		uf := newUnionFind(3)
		uf.union(0, 1)
		uf.union(1, 2)

		layout := &scevtest.Layout{DefaultSize: 4}
		c := newChecker(scev, layout)

		v := c.checkClasses([]int{0, 1, 2}, uf, tagByID, &scevtest.Loop{}, nil)
		if v != Safe {
			t.Fatalf("run %d: checkClasses = %v, want Safe", i, v)
		}
		if c.maxSafeDistance != 12 {
			t.Fatalf("run %d: maxSafeDistance = %d, want 12", i, c.maxSafeDistance)
		}
	}
}

// TestScenarioS4PositiveDistanceVectorizes models `a[i+2] = a[i]`
// (32-bit): a single forward flow dependence with distance 8.
func TestScenarioS4PositiveDistanceVectorizes(t *testing.T) {
	scev := scevtest.NewSCEV()
	tagLoad := scenarioTag(scev, false, 0, 0, 0) // a[i]
	tagStore := scenarioTag(scev, true, 1, 1, 8) // a[i+2]
	tagByID := map[int]AccessTag{0: tagLoad, 1: tagStore}

	uf := newUnionFind(2)
	uf.union(0, 1)

	layout := &scevtest.Layout{DefaultSize: 4}
	c := newChecker(scev, layout)

	v := c.checkClasses([]int{0, 1}, uf, tagByID, &scevtest.Loop{}, nil)
	if v != Safe {
		t.Fatalf("checkClasses = %v, want Safe", v)
	}
	if c.maxSafeDistance != 8 {
		t.Errorf("maxSafeDistance = %d, want 8", c.maxSafeDistance)
	}
}

// TestScenarioS5NegativeDistanceSafe models `a[i] = a[i+1]` (32-bit):
// the earlier-in-program-order access is the read ahead of the write,
// not the write-then-read anti-dependence step 6 singles out, so it's
// accepted without touching max_safe_distance_bytes.
func TestScenarioS5NegativeDistanceSafe(t *testing.T) {
	scev := scevtest.NewSCEV()
	tagLoad := scenarioTag(scev, false, 0, 0, 4) // a[i+1]
	tagStore := scenarioTag(scev, true, 1, 1, 0) // a[i]
	tagByID := map[int]AccessTag{0: tagLoad, 1: tagStore}

	uf := newUnionFind(2)
	uf.union(0, 1)

	layout := &scevtest.Layout{DefaultSize: 4}
	c := newChecker(scev, layout)

	v := c.checkClasses([]int{0, 1}, uf, tagByID, &scevtest.Loop{}, nil)
	if v != Safe {
		t.Fatalf("checkClasses = %v, want Safe", v)
	}
	if c.maxSafeDistance != maxSafeDistanceInitial {
		t.Errorf("maxSafeDistance = %d, want the untouched UINT_MAX stand-in %d", c.maxSafeDistance, maxSafeDistanceInitial)
	}
}
