// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import "golang.org/x/tools/go/ssa"

// loopKey identifies one loop within one function, for caching
// (spec.md §3 "Lifetimes": a LoopAccessInfo is valid only as long as
// the function's IR and the loop's shape are unchanged). A loop is
// keyed by its header block, which is stable for the life of the
// loop's current shape.
type loopKey struct {
	fn     *ssa.Function
	header *ssa.BasicBlock
}

// A Cache memoizes Analyze results per function (spec.md §5). A Cache
// is not safe for concurrent use without external synchronization,
// the same requirement rtcheck's handlers.go places on its own
// per-function analysis state.
type Cache struct {
	results map[loopKey]LoopAccessInfo
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{results: make(map[loopKey]LoopAccessInfo)}
}

// Analyze returns the cached LoopAccessInfo for the loop d.Inspector
// describes within fn, computing and storing it on first use.
func (c *Cache) Analyze(fn *ssa.Function, d *Driver) LoopAccessInfo {
	key := loopKey{fn, d.Inspector.Header()}
	if info, ok := c.results[key]; ok {
		return info
	}
	info := d.Analyze()
	c.results[key] = info
	return info
}

// Invalidate drops every cached result for fn, for callers that mutate
// fn's IR (e.g. after an earlier pass transforms the loop).
func (c *Cache) Invalidate(fn *ssa.Function) {
	for k := range c.results {
		if k.fn == fn {
			delete(c.results, k)
		}
	}
}
