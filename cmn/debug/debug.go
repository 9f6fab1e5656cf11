// Package debug provides cheap, always-compiled assertion helpers used on
// paths that must never silently misbehave (buffer indexing, checkpoint
// replay). Unlike the teacher's build-tag-gated package, assertions here
// are controlled by the Enabled flag so a single binary can toggle them
// at startup (e.g. from a "Debug" config option) without a recompile.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"

	"github.com/golang/glog"
)

// Enabled gates the checks below. It defaults to false, and nothing in
// this module sets it true, so the module's own tests run with the
// checks off.
var Enabled = false

func Assert(cond bool) {
	if Enabled && !cond {
		panic("assertion failed")
	}
}

func Assertf(cond bool, f string, a ...interface{}) {
	if Enabled && !cond {
		panic(fmt.Sprintf("assertion failed: "+f, a...))
	}
}

func AssertNoErr(err error) {
	if Enabled && err != nil {
		panic(err)
	}
}

func Errorf(f string, a ...interface{}) {
	if Enabled {
		glog.ErrorDepth(1, fmt.Sprintf("[DEBUG] "+f, a...))
	}
}

func Infof(f string, a ...interface{}) {
	if Enabled {
		glog.InfoDepth(1, fmt.Sprintf("[DEBUG] "+f, a...))
	}
}
