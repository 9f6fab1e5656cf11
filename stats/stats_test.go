package stats

import (
	"testing"
	"time"

	"github.com/mtconnect-go/agent/devtools/tassert"
)

func TestAddAccumulatesRegisteredCounter(t *testing.T) {
	tr := New(0)
	tr.Add(ObservationsAppended, 3)
	tr.Add(ObservationsAppended, 2)

	tassert.Errorf(t, tr.Get(ObservationsAppended) == 5, "expected 5, got %d", tr.Get(ObservationsAppended))
}

func TestAddIgnoresUnregisteredCounter(t *testing.T) {
	tr := New(0)
	tr.Add("not.a.real.counter", 1)
	tassert.Errorf(t, tr.Get("not.a.real.counter") == 0, "expected unregistered counter to read back 0")
}

func TestObserveRecordsNanoseconds(t *testing.T) {
	tr := New(0)
	tr.Observe(IngestLatency, 250*time.Microsecond)
	tassert.Errorf(t, tr.Get(IngestLatency) == (250 * time.Microsecond).Nanoseconds(),
		"expected %d, got %d", (250 * time.Microsecond).Nanoseconds(), tr.Get(IngestLatency))
}

func TestSnapshotReturnsIndependentCopy(t *testing.T) {
	tr := New(0)
	tr.Add(BufferWraps, 1)
	snap := tr.Snapshot()
	tr.Add(BufferWraps, 1)

	tassert.Errorf(t, snap[BufferWraps] == 1, "expected snapshot to freeze at 1, got %d", snap[BufferWraps])
	tassert.Errorf(t, tr.Get(BufferWraps) == 2, "expected live counter to keep accumulating, got %d", tr.Get(BufferWraps))
}

func TestRunWithZeroIntervalBlocksUntilStop(t *testing.T) {
	tr := New(0)
	done := make(chan error, 1)
	go func() { done <- tr.Run() }()

	select {
	case <-done:
		t.Fatal("expected Run to block with a zero stats interval")
	case <-time.After(50 * time.Millisecond):
	}

	tr.Stop(nil)
	select {
	case err := <-done:
		tassert.CheckError(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after Stop")
	}
}
