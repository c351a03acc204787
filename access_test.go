// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"
)

func TestSameUnderlyingObjectIdentity(t *testing.T) {
	v := ssa.NewConst(nil, types.Typ[types.Int])
	if !sameUnderlyingObject(v, v) {
		t.Error("a value is always the same underlying object as itself")
	}
}

func TestSameUnderlyingObjectDistinctIndexAddr(t *testing.T) {
	base := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	idx1 := ssa.NewConst(nil, types.Typ[types.Int])
	idx2 := ssa.NewConst(nil, types.Typ[types.Int])

	a := &ssa.IndexAddr{X: base, Index: idx1}
	b := &ssa.IndexAddr{X: base, Index: idx2}

	if !sameUnderlyingObject(a, b) {
		t.Error("a[i] and a[i-3] (same base X) should be the same underlying object")
	}
}

func TestSameUnderlyingObjectDifferentBase(t *testing.T) {
	baseA := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	baseB := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	idx := ssa.NewConst(nil, types.Typ[types.Int])

	a := &ssa.IndexAddr{X: baseA, Index: idx}
	b := &ssa.IndexAddr{X: baseB, Index: idx}

	if sameUnderlyingObject(a, b) {
		t.Error("a[i] and b[i] with different bases must not be the same underlying object")
	}
}

func TestSameUnderlyingObjectNonIndexAddr(t *testing.T) {
	a := ssa.NewConst(nil, types.Typ[types.Int])
	b := ssa.NewConst(nil, types.Typ[types.Int])
	if sameUnderlyingObject(a, b) {
		t.Error("two distinct non-IndexAddr values must not be the same underlying object")
	}
}

func TestAccessTagIsWrite(t *testing.T) {
	ptr := ssa.NewConst(nil, types.NewPointer(types.Typ[types.Int32]))
	load := AccessTag{Op: Load{Ptr: ptr}}
	store := AccessTag{Op: Store{Ptr: ptr}}

	if load.IsWrite() {
		t.Error("a Load tag must not report IsWrite")
	}
	if !store.IsWrite() {
		t.Error("a Store tag must report IsWrite")
	}
	if load.Pointer() != ptr || store.Pointer() != ptr {
		t.Error("Pointer() must return the op's pointer")
	}
}
