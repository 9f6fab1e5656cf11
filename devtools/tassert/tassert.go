// Package tassert provides small testing assertions shared by this
// repository's test suites, in the style of the teacher's internal
// devtools/tassert helper (referenced throughout aistore's tests but
// kept out of the production binary).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package tassert

import "testing"

func Errorf(t *testing.T, cond bool, f string, a ...interface{}) {
	t.Helper()
	if !cond {
		t.Errorf(f, a...)
	}
}

func Fatalf(t *testing.T, cond bool, f string, a ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(f, a...)
	}
}

func CheckError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
