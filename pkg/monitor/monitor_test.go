package monitor

import (
	"context"
	"sync"
	"testing"

	"github.com/prajnoha/lvm2/pkg/config"
	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/events"
	"github.com/prajnoha/lvm2/pkg/scan"
)

type recordingEngine struct {
	mu    sync.Mutex
	scans []device.Devno
}

func (r *recordingEngine) Scan(_ context.Context, devno device.Devno) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, devno)
	return nil
}

func (r *recordingEngine) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scans)
}

func newTestMonitor(t *testing.T, mutate func(*config.Config)) (*Monitor, *recordingEngine) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	engine := &recordingEngine{}
	m, err := New(cfg, Options{Engine: engine})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, engine
}

func memberEvent(action events.Action, devno device.Devno, name string) events.Event {
	return events.Event{
		Action:  action,
		Class:   events.ClassOther,
		Name:    name,
		Aliases: []string{name},
		Devno:   devno,
		FSType:  scan.MemberFSType,
	}
}

func TestHandleEventMemberAddDefersScan(t *testing.T) {
	m, engine := newTestMonitor(t, nil)
	devno := device.Devno{Major: 8, Minor: 17}

	m.HandleEvent(context.Background(), memberEvent(events.ActionAdd, devno, "/dev/sdb1"))

	if got := m.scheduler.PendingLen(); got != 1 {
		t.Errorf("pending scans = %d, want 1", got)
	}
	if engine.count() != 0 {
		t.Error("deferred mode must not invoke the engine synchronously")
	}
}

func TestHandleEventNonMemberIgnored(t *testing.T) {
	m, _ := newTestMonitor(t, func(cfg *config.Config) {
		// Even a reject-everything filter stays out of the way: the
		// filter is not consulted for non-members.
		cfg.Devices.Filter = []string{"r|.*|"}
	})

	ev := events.Event{
		Action:  events.ActionAdd,
		Class:   events.ClassOther,
		Name:    "/dev/sdc",
		Aliases: []string{"/dev/sdc"},
		Devno:   device.Devno{Major: 8, Minor: 32},
		FSType:  "ext4",
	}
	m.HandleEvent(context.Background(), ev)

	if got := m.scheduler.PendingLen(); got != 0 {
		t.Errorf("pending scans = %d, want 0", got)
	}
}

func TestHandleEventFilteredMemberSuppressed(t *testing.T) {
	m, engine := newTestMonitor(t, func(cfg *config.Config) {
		cfg.Devices.Filter = []string{"r|sdb|"}
	})
	devno := device.Devno{Major: 8, Minor: 17}

	m.HandleEvent(context.Background(), memberEvent(events.ActionAdd, devno, "/dev/sdb1"))

	if got := m.scheduler.PendingLen(); got != 0 {
		t.Errorf("pending scans = %d, want 0 for a rejected device", got)
	}
	if engine.count() != 0 {
		t.Error("rejected device must not be scanned")
	}
}

func TestHandleEventGlobalFilterApplies(t *testing.T) {
	m, _ := newTestMonitor(t, func(cfg *config.Config) {
		cfg.Devices.GlobalFilter = []string{"r|sdb|"}
		cfg.Devices.Filter = []string{"a|.*|"}
	})
	devno := device.Devno{Major: 8, Minor: 17}

	m.HandleEvent(context.Background(), memberEvent(events.ActionAdd, devno, "/dev/sdb1"))

	if got := m.scheduler.PendingLen(); got != 0 {
		t.Errorf("pending scans = %d, want 0 when the global filter rejects", got)
	}
}

func TestHandleEventRemoveScansSynchronously(t *testing.T) {
	m, engine := newTestMonitor(t, nil)
	devno := device.Devno{Major: 8, Minor: 17}

	// Establish membership, then remove the device.
	m.HandleEvent(context.Background(), memberEvent(events.ActionAdd, devno, "/dev/sdb1"))

	ev := events.Event{
		Action:  events.ActionRemove,
		Class:   events.ClassOther,
		Name:    "/dev/sdb1",
		Aliases: []string{"/dev/sdb1"},
		Devno:   devno,
		FSType:  "",
	}
	m.HandleEvent(context.Background(), ev)

	if engine.count() != 1 {
		t.Errorf("engine scans = %d, want 1 synchronous cleanup scan", engine.count())
	}
	if got := m.cache.Len(); got != 0 {
		t.Errorf("cache should forget removed identities, have %d", got)
	}
}

func TestHandleEventMembershipLossOnChange(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	devno := device.Devno{Major: 8, Minor: 17}

	m.HandleEvent(context.Background(), memberEvent(events.ActionAdd, devno, "/dev/sdb1"))
	if got := m.scheduler.PendingLen(); got != 1 {
		t.Fatalf("pending scans after add = %d, want 1", got)
	}

	// The signature wiped: previous fs type says member, current does not.
	ev := events.Event{
		Action:  events.ActionChange,
		Class:   events.ClassOther,
		Name:    "/dev/sdb1",
		Aliases: []string{"/dev/sdb1"},
		Devno:   devno,
		FSType:  "",
	}
	m.HandleEvent(context.Background(), ev)

	// The previous job is still pending, so the loss-driven scan
	// coalesces into it; the recorded fs type must be gone either way.
	if got := m.cache.Get(devno).FSType; got != "" {
		t.Errorf("recorded fs type = %q, want cleared", got)
	}
}

func TestCloseReleasesFilters(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
