package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prajnoha/lvm2/pkg/device"
)

// fakeEngine records scan invocations and signals each completion.
type fakeEngine struct {
	mu    sync.Mutex
	scans []device.Devno
	done  chan device.Devno
	err   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{done: make(chan device.Devno, 16)}
}

func (f *fakeEngine) Scan(_ context.Context, devno device.Devno) error {
	f.mu.Lock()
	f.scans = append(f.scans, devno)
	f.mu.Unlock()
	f.done <- devno
	return f.err
}

func (f *fakeEngine) scanned() []device.Devno {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]device.Devno, len(f.scans))
	copy(out, f.scans)
	return out
}

func waitScan(t *testing.T, engine *fakeEngine) device.Devno {
	t.Helper()
	select {
	case devno := <-engine.done:
		return devno
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a scan job")
		return device.Devno{}
	}
}

func TestSchedulerRunsJobs(t *testing.T) {
	engine := newFakeEngine()
	s := NewScheduler(engine, 2, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	a := device.Devno{Major: 8, Minor: 16}
	b := device.Devno{Major: 8, Minor: 32}
	if !s.Enqueue(a) {
		t.Error("first enqueue of a should queue a job")
	}
	if !s.Enqueue(b) {
		t.Error("first enqueue of b should queue a job")
	}

	seen := map[device.Devno]bool{
		waitScan(t, engine): true,
		waitScan(t, engine): true,
	}
	if !seen[a] || !seen[b] {
		t.Errorf("scanned devices = %v, want both %s and %s", engine.scanned(), a, b)
	}

	cancel()
	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Errorf("Run after cancel = %v, want context.Canceled", err)
	}
}

func TestSchedulerCoalescesPendingJobs(t *testing.T) {
	engine := newFakeEngine()
	s := NewScheduler(engine, 1, 8)

	devno := device.Devno{Major: 253, Minor: 0}
	if !s.Enqueue(devno) {
		t.Fatal("first enqueue should queue a job")
	}
	if s.Enqueue(devno) {
		t.Error("second enqueue of a pending identity should coalesce")
	}
	if got := s.PendingLen(); got != 1 {
		t.Errorf("PendingLen = %d, want 1", got)
	}

	// Once the job has run, the identity may be enqueued again.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	waitScan(t, engine)
	if !s.Enqueue(devno) {
		t.Error("enqueue after the job started should queue again")
	}
	waitScan(t, engine)
}

func TestSchedulerDropsWhenQueueFull(t *testing.T) {
	engine := newFakeEngine()
	s := NewScheduler(engine, 1, 1)

	// No Run loop: the single buffer slot fills and the next job drops.
	if !s.Enqueue(device.Devno{Major: 8, Minor: 0}) {
		t.Fatal("first enqueue should fit the buffer")
	}
	if s.Enqueue(device.Devno{Major: 8, Minor: 16}) {
		t.Error("enqueue into a full queue should drop")
	}
	if got := s.PendingLen(); got != 1 {
		t.Errorf("PendingLen after drop = %d, want 1", got)
	}
}

func TestSchedulerJobErrorsAreSwallowed(t *testing.T) {
	engine := newFakeEngine()
	engine.err = errors.New("scan tool exploded")
	s := NewScheduler(engine, 1, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	s.Enqueue(device.Devno{Major: 7, Minor: 0})
	waitScan(t, engine)

	// The failure stays inside the job; Run keeps going until cancelled.
	cancel()
	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestNewExecEngineValidation(t *testing.T) {
	if _, err := NewExecEngine(nil, 0); !errors.Is(err, ErrEmptyScanCommand) {
		t.Errorf("NewExecEngine(nil) = %v, want ErrEmptyScanCommand", err)
	}
	if _, err := NewExecEngine([]string{"pvscan", "--cache"}, 0); err != nil {
		t.Errorf("NewExecEngine with command: %v", err)
	}
}

func TestExecEngineRuns(t *testing.T) {
	engine, err := NewExecEngine([]string{"true"}, time.Second)
	if err != nil {
		t.Fatalf("NewExecEngine: %v", err)
	}
	if err := engine.Scan(context.Background(), device.Devno{Major: 8, Minor: 0}); err != nil {
		t.Errorf("Scan via true(1): %v", err)
	}

	failing, err := NewExecEngine([]string{"false"}, time.Second)
	if err != nil {
		t.Fatalf("NewExecEngine: %v", err)
	}
	if err := failing.Scan(context.Background(), device.Devno{Major: 8, Minor: 0}); err == nil {
		t.Error("Scan via false(1) should report the exit status")
	}
}
