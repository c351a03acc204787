// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import (
	"testing"

	"github.com/aclements/loopaccess/internal/scevtest"
)

func TestEmitRuntimeCheckNoPairsIsTrueAnchor(t *testing.T) {
	expander := &scevtest.Expander{}
	at := InsertionPoint{}

	EmitRuntimeCheck(nil, expander, at)
	if len(expander.Record) != 1 {
		t.Fatalf("Record = %v, want exactly the anchor expansion", expander.Record)
	}
}

func TestEmitRuntimeCheckOnePairComposesComparisons(t *testing.T) {
	entries := []RuntimeCheckEntry{
		{Start: ConstExpr(0), End: ConstExpr(10), IsWrite: true, DepSetID: 1, AliasSet: 0},
		{Start: ConstExpr(10), End: ConstExpr(20), IsWrite: false, DepSetID: 2, AliasSet: 0},
	}
	expander := &scevtest.Expander{}
	at := InsertionPoint{}

	EmitRuntimeCheck(entries, expander, at)

	counts := map[string]int{}
	for _, r := range expander.Record {
		counts[r]++
	}
	if counts["le"] != 2 {
		t.Errorf("le calls = %d, want 2 (one per direction of overlap)", counts["le"])
	}
	if counts["or"] != 1 {
		t.Errorf("or calls = %d, want 1 (disjointness of the one required pair)", counts["or"])
	}
	if counts["and"] != 1 {
		t.Errorf("and calls = %d, want 1 (combined with the true anchor)", counts["and"])
	}
}

func TestEmitRuntimeCheckSkipsPairsNotNeedingCheck(t *testing.T) {
	// Both same dep set: no comparison should be emitted between them.
	entries := []RuntimeCheckEntry{
		{Start: ConstExpr(0), End: ConstExpr(10), IsWrite: true, DepSetID: 1, AliasSet: 0},
		{Start: ConstExpr(10), End: ConstExpr(20), IsWrite: true, DepSetID: 1, AliasSet: 0},
	}
	expander := &scevtest.Expander{}
	at := InsertionPoint{}

	EmitRuntimeCheck(entries, expander, at)

	for _, r := range expander.Record {
		if r == "le" || r == "or" {
			t.Errorf("unexpected %q: accesses in the same dep set need no comparison", r)
		}
	}
}
