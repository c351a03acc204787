// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loopaccess

import "fmt"

// A diagnosticSink accepts at most one diagnostic per analysis (spec.md
// §7: "At most one diagnostic is attached per analysis; subsequent
// report attempts assert."). This mirrors rtcheck's own internal
// invariant checks, which panic rather than silently continuing in a
// state the analysis wasn't written to handle (e.g.
// order.go's "locks come from a different StringSpace").
type diagnosticSink struct {
	reason string
	have   bool
}

// report records reason as the analysis's diagnostic. It panics if a
// diagnostic has already been reported: every rejection path in this
// package reports at most once and then unwinds, so a second report
// indicates a bug in the driver's control flow, not a reachable user
// condition.
func (d *diagnosticSink) report(format string, args ...interface{}) {
	if d.have {
		panic("diagnostic already reported: " + d.reason)
	}
	d.reason = fmt.Sprintf(format, args...)
	d.have = true
}

// get returns the recorded diagnostic, or "" if none was reported.
func (d *diagnosticSink) get() string {
	return d.reason
}
