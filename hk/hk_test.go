package hk

import (
	"sync"
	"testing"
	"time"

	"github.com/mtconnect-go/agent/devtools/tassert"
)

func TestRegFiresAfterDelay(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop(nil)

	var mu sync.Mutex
	fired := false
	done := make(chan struct{})
	r.Reg("test.once", func() time.Duration {
		mu.Lock()
		fired = true
		mu.Unlock()
		close(done)
		return 0
	}, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected task to fire within 1s")
	}

	mu.Lock()
	defer mu.Unlock()
	tassert.Errorf(t, fired, "expected task to have fired")
}

func TestRegReschedulesWhenReturningPositiveDuration(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop(nil)

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	r.Reg("test.repeat", func() time.Duration {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n >= 3 {
			close(done)
			return 0
		}
		return 5 * time.Millisecond
	}, 5*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected task to fire 3 times within 2s")
	}

	mu.Lock()
	defer mu.Unlock()
	tassert.Errorf(t, count == 3, "expected exactly 3 firings, got %d", count)
}

func TestUnregRemovesPendingTask(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop(nil)

	fired := make(chan struct{}, 1)
	r.Reg("test.cancel", func() time.Duration {
		fired <- struct{}{}
		return 0
	}, 50*time.Millisecond)
	r.Unreg("test.cancel")

	select {
	case <-fired:
		t.Fatal("expected unregistered task not to fire")
	case <-time.After(150 * time.Millisecond):
	}
}
