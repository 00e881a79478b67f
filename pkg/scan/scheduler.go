package scan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/metrics"
)

// Scheduler runs deferred scan jobs out of band with bounded concurrency.
//
// Jobs are keyed by device identity and coalesced: while a scan for a device
// is still waiting to run, further enqueues for the same identity are
// no-ops. A superseding event simply re-runs the decision and enqueues
// again once the pending job has started.
type Scheduler struct {
	engine Engine
	sem    *semaphore.Weighted

	mu      sync.Mutex
	pending map[device.Devno]bool

	jobs chan device.Devno
}

// NewScheduler builds a scheduler running at most workers scans at once,
// holding at most buffer jobs waiting.
func NewScheduler(engine Engine, workers int64, buffer int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Scheduler{
		engine:  engine,
		sem:     semaphore.NewWeighted(workers),
		pending: make(map[device.Devno]bool),
		jobs:    make(chan device.Devno, buffer),
	}
}

// Enqueue schedules a scan for a device identity. It reports whether a new
// job was queued; false means the job was coalesced into an already-pending
// one or dropped because the queue is full.
func (s *Scheduler) Enqueue(devno device.Devno) bool {
	s.mu.Lock()
	if s.pending[devno] {
		s.mu.Unlock()
		klog.V(4).Infof("Scan of %s already pending, coalescing", devno)
		return false
	}
	s.pending[devno] = true
	s.mu.Unlock()

	select {
	case s.jobs <- devno:
		metrics.SetScanQueueDepth(len(s.jobs))
		return true
	default:
		s.clearPending(devno)
		klog.Warningf("Scan queue full, dropping scan of %s", devno)
		metrics.RecordScanJob(metrics.StatusDropped, 0)
		return false
	}
}

// Run drains the queue until the context is cancelled. Job failures are
// logged and counted, never propagated: scans are fire-and-forget.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case devno := <-s.jobs:
				metrics.SetScanQueueDepth(len(s.jobs))
				if err := s.sem.Acquire(ctx, 1); err != nil {
					return err
				}
				// The job is no longer pending once it starts; an event
				// arriving during the scan queues a fresh one.
				s.clearPending(devno)
				g.Go(func() error {
					defer s.sem.Release(1)
					s.runJob(ctx, devno)
					return nil
				})
			}
		}
	})

	return g.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, devno device.Devno) {
	start := time.Now()
	if err := s.engine.Scan(ctx, devno); err != nil {
		klog.Errorf("Deferred scan of %s failed: %v", devno, err)
		metrics.RecordScanJob(metrics.StatusError, time.Since(start))
		return
	}
	klog.V(4).Infof("Deferred scan of %s completed", devno)
	metrics.RecordScanJob(metrics.StatusSuccess, time.Since(start))
}

func (s *Scheduler) clearPending(devno device.Devno) {
	s.mu.Lock()
	delete(s.pending, devno)
	s.mu.Unlock()
}

// PendingLen returns the number of distinct device identities with a scan
// waiting to run.
func (s *Scheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
