// Package stats tracks ingest counters and latencies the way the
// teacher's target stats runner does (stats/target_stats.go): named
// values pushed through a worker channel and periodically logged, here
// scaled down to an in-memory agent core with no StatsD/Prometheus
// transport (those are out of scope per spec.md §1 — see DESIGN.md).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"
)

// Counter/latency names, following the teacher's "*.n" / "*.ns" / "*.size"
// naming convention (stats/target_stats.go).
const (
	ObservationsAppended = "obs.appended.n"
	ObservationsDropped  = "obs.dropped.n"
	AssetsStored         = "assets.stored.n"
	AssetsEvicted        = "assets.evicted.n"
	BufferWraps          = "buffer.wraps.n"
	IngestLatency        = "ingest.ns" // RawLine arrival to DeliverObservation
)

// Tracker is the agent's counters/latency registry: one atomic.Int64
// per name, added to from any goroutine, periodically logged by Run.
type Tracker struct {
	counters   map[string]*atomic.Int64
	statsEvery time.Duration
	stopCh     chan struct{}
	name       string
}

func New(statsEvery time.Duration) *Tracker {
	t := &Tracker{
		counters:   make(map[string]*atomic.Int64),
		statsEvery: statsEvery,
		stopCh:     make(chan struct{}),
		name:       "stats",
	}
	for _, n := range []string{ObservationsAppended, ObservationsDropped, AssetsStored, AssetsEvicted, BufferWraps, IngestLatency} {
		t.counters[n] = atomic.NewInt64(0)
	}
	return t
}

func (t *Tracker) Name() string { return t.name }

// Add increments a registered counter by delta; unknown names are
// dropped with a warning rather than panicking, since a future spec
// addition should never crash ingest.
func (t *Tracker) Add(name string, delta int64) {
	c, ok := t.counters[name]
	if !ok {
		glog.Warningf("stats: unregistered counter %q", name)
		return
	}
	c.Add(delta)
}

// Observe records a latency sample in nanoseconds under name.
func (t *Tracker) Observe(name string, d time.Duration) { t.Add(name, d.Nanoseconds()) }

func (t *Tracker) Get(name string) int64 {
	if c, ok := t.counters[name]; ok {
		return c.Load()
	}
	return 0
}

// Snapshot returns a copy of every counter's current value, used for
// the diagnostic introspection endpoint a sink may expose.
func (t *Tracker) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(t.counters))
	for name, c := range t.counters {
		out[name] = c.Load()
	}
	return out
}

// Run logs a snapshot every statsEvery until Stop, mirroring Trunner's
// periodic r.log(uptime) cadence.
func (t *Tracker) Run() error {
	if t.statsEvery <= 0 {
		<-t.stopCh
		return nil
	}
	ticker := time.NewTicker(t.statsEvery)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return nil
		case <-ticker.C:
			glog.Infof("stats: %+v", t.Snapshot())
		}
	}
}

func (t *Tracker) Stop(err error) {
	if err != nil {
		glog.Warningf("stats tracker stopping: %v", err)
	}
	close(t.stopCh)
}
