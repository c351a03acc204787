// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command loopaccess analyzes the loops of a Go package and reports,
// for each innermost loop, whether its memory accesses permit
// vectorization.
package main

import (
	"flag"
	"fmt"
	"go/token"
	"go/types"
	"log"
	"os"

	"golang.org/x/tools/go/loader"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/aclements/loopaccess"
	"github.com/aclements/loopaccess/internal/loopfind"
)

func main() {
	var (
		forceVectorWidth      int
		forceVectorInterleave int
		runtimeCheckThreshold int
		fromGo                string
	)
	flag.IntVar(&forceVectorWidth, "force-vector-width", 0, "override the autoselected vector width (0 = autoselect)")
	flag.IntVar(&forceVectorInterleave, "force-vector-interleave", 0, "override the autoselected interleave factor (0 = autoselect)")
	flag.IntVar(&runtimeCheckThreshold, "runtime-memory-check-threshold", 0, "maximum pointer-pair comparisons a runtime check may use (0 = default)")
	flag.StringVar(&fromGo, "fromgo", "", "analyze every innermost loop in `package`")
	flag.Parse()

	if fromGo == "" || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := loopaccess.Config{
		ForceVectorWidth:            forceVectorWidth,
		ForceVectorInterleave:       forceVectorInterleave,
		RuntimeMemoryCheckThreshold: runtimeCheckThreshold,
	}

	var conf loader.Config
	if _, err := conf.FromArgs([]string{fromGo}, false); err != nil {
		log.Fatal(err)
	}

	lprog, err := conf.Load()
	if err != nil {
		log.Fatalf("loading %s: %s", fromGo, err)
	}

	prog := ssautil.CreateProgram(lprog, 0)
	prog.Build()

	for _, pkg := range prog.AllPackages() {
		if pkg == nil {
			continue
		}
		analyzePackage(lprog.Fset, pkg, cfg)
	}
}

func analyzePackage(fset *token.FileSet, pkg *ssa.Package, cfg loopaccess.Config) {
	for _, member := range pkg.Members {
		fn, ok := member.(*ssa.Function)
		if !ok || fn.Blocks == nil {
			continue
		}
		analyzeFunction(fset, fn, cfg)

		for _, anon := range fn.AnonFuncs {
			analyzeFunction(fset, anon, cfg)
		}
	}
}

func analyzeFunction(fset *token.FileSet, fn *ssa.Function, cfg loopaccess.Config) {
	loops := loopfind.Find(fn)
	if len(loops) == 0 {
		return
	}
	dom := simpleDom{loopfind.Dominators(fn)}
	layout := simpleLayout{sizes: &types.StdSizes{WordSize: 8, MaxAlign: 8}}

	for _, l := range loops {
		iv, step := findInductionVariable(l)
		scev := &simpleSCEV{iv: iv, ivStep: step}
		d := loopaccess.NewDriver(l, scev, simpleAlias{}, layout, dom, nil, cfg)
		info := d.Analyze()
		report(fset, fn, l, info)
	}
}

func report(fset *token.FileSet, fn *ssa.Function, l *loopfind.Loop, info loopaccess.LoopAccessInfo) {
	pos := fset.Position(l.Header().Instrs[0].Pos())
	status := "can vectorize"
	if !info.CanVectorize {
		status = "cannot vectorize: " + info.Diagnostic
	} else if info.NeedRuntimeCheck {
		status = fmt.Sprintf("can vectorize with runtime check (%d pointers)", len(info.RuntimeDescriptor))
	}
	fmt.Printf("%s: %s: %s (%d loads, %d stores)\n", pos, fn, status, info.NumLoads, info.NumStores)
}

// findInductionVariable locates the loop header's sole Phi that steps
// by a constant amount each iteration, the induction variable pattern
// the demo's SCEV recognizes.
func findInductionVariable(l *loopfind.Loop) (*ssa.Phi, int64) {
	for _, instr := range l.Header().Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			continue
		}
		for _, edge := range phi.Edges {
			bin, ok := edge.(*ssa.BinOp)
			if !ok {
				continue
			}
			x, ok := bin.X.(*ssa.Phi)
			if !ok || x != phi {
				continue
			}
			c, ok := bin.Y.(*ssa.Const)
			if !ok {
				continue
			}
			step := c.Int64()
			if bin.Op == token.SUB {
				step = -step
			}
			return phi, step
		}
	}
	return nil, 0
}
