// Package cos provides low-level helpers shared by every agent package:
// assertions, a daemon Runner contract, and small numeric/string utilities.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"fmt"
	"os"
	"strconv"
)

type (
	// Runner is the contract every long-lived agent component (sources,
	// sinks, the housekeeper, the agent core itself) satisfies so they can
	// be started and stopped uniformly.
	Runner interface {
		Name() string
		Run() error
		Stop(err error)
	}

	// ErrSignal wraps a received OS signal so callers can recover the
	// exit code the way a shell would report it.
	ErrSignal struct {
		signal os.Signal
	}
)

func NewErrSignal(s os.Signal) *ErrSignal { return &ErrSignal{signal: s} }

func (e *ErrSignal) Error() string { return "signal: " + e.signal.String() }

// ExitCode mimics the shell convention: 128 + signal number is not always
// knowable portably, so this reports a fixed value reserved for
// signal-triggered shutdowns.
func (e *ErrSignal) ExitCode() int { return 128 }

func Assert(cond bool) {
	if !cond {
		Exitf("assertion failed")
	}
}

func AssertMsg(cond bool, msg string) {
	if !cond {
		Exitf("assertion failed: %s", msg)
	}
}

func Assertf(cond bool, f string, a ...interface{}) {
	if !cond {
		Exitf("assertion failed: "+f, a...)
	}
}

// Exitf prints a formatted message to stderr and exits the process.
// Reserved for unrecoverable startup failures (bad config, bad device
// model) -- never called from the ingest path.
func Exitf(f string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func ExitLogf(f string, a ...interface{}) { Exitf(f, a...) }

// ParseBool is a small wrapper kept for symmetry with the rest of the
// config parsing helpers below (env vars arrive as strings).
func ParseBool(s string) (bool, error) { return strconv.ParseBool(s) }

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func MinI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func Abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
