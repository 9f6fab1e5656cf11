// Package hk implements the periodic housekeeping registry long-running
// sweeps schedule themselves through; the only one registered is the
// agent core's asset-store sweep, "asset-store.evict-sweep"
// (spec.md §4.6), grounded on cluster/lom_cache_hk.go's use of
// aistore's hk.Reg("lom-cache.gc", fn, interval) convention. A
// registered function returns the delay until its own next run, the
// same self-rescheduling contract lom_cache_hk.go's housekeep() uses,
// so a sweep under memory/backlog pressure can shorten its own next
// interval instead of the registry dictating a fixed period.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import (
	"container/heap"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Func is a housekeeping task. It returns the delay until it should
// run again; returning 0 deregisters it.
type Func func() time.Duration

type entry struct {
	name    string
	fn      Func
	due     time.Time
	index   int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Registry is a single housekeeper: a min-heap of scheduled tasks
// served by one goroutine, woken early whenever a new task is
// registered with a sooner due time than whatever it was sleeping on.
type Registry struct {
	mu      sync.Mutex
	byName  map[string]*entry
	pending entryHeap
	wake    chan struct{}
	stopCh  chan struct{}
	now     func() time.Time
}

func New() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (r *Registry) Name() string { return "housekeeper" }

// Reg registers fn to run after delay, replacing any prior registration
// under the same name. Mirrors hk.Reg(name, fn, interval).
func (r *Registry) Reg(name string, fn Func, delay time.Duration) {
	r.mu.Lock()
	if old, exists := r.byName[name]; exists {
		heap.Remove(&r.pending, old.index)
	}
	e := &entry{name: name, fn: fn, due: r.now().Add(delay)}
	r.byName[name] = e
	heap.Push(&r.pending, e)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Unreg removes a registered task, if present.
func (r *Registry) Unreg(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, exists := r.byName[name]; exists {
		heap.Remove(&r.pending, e.index)
		delete(r.byName, name)
	}
}

// Run serves the registry until Stop is called, firing each due task
// in-line (tasks must not block for long; sweeps that touch the buffer
// or asset store hold their own short-lived locks).
func (r *Registry) Run() error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		r.mu.Lock()
		var sleep time.Duration
		if len(r.pending) == 0 {
			sleep = time.Hour
		} else {
			sleep = time.Until(r.pending[0].due)
			if sleep < 0 {
				sleep = 0
			}
		}
		r.mu.Unlock()

		timer.Reset(sleep)
		select {
		case <-r.stopCh:
			return nil
		case <-r.wake:
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
			r.fireDue()
		}
	}
}

func (r *Registry) fireDue() {
	now := r.now()
	for {
		r.mu.Lock()
		if len(r.pending) == 0 || r.pending[0].due.After(now) {
			r.mu.Unlock()
			return
		}
		e := heap.Pop(&r.pending).(*entry)
		delete(r.byName, e.name)
		r.mu.Unlock()

		next := runSafely(e.name, e.fn)
		if next > 0 {
			r.Reg(e.name, e.fn, next)
		}
	}
}

func runSafely(name string, fn Func) (next time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			glog.Errorf("housekeeping task %q panicked: %v", name, p)
			next = 0
		}
	}()
	return fn()
}

func (r *Registry) Stop(err error) {
	if err != nil {
		glog.Warningf("housekeeper stopping: %v", err)
	}
	close(r.stopCh)
}
