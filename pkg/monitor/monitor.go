// Package monitor wires the admission layer together: it consumes decoded
// kernel uevents, consults the admission filter and the scan-trigger
// coordinator, and hands qualifying scans to the scheduler.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/config"
	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/events"
	"github.com/prajnoha/lvm2/pkg/filter"
	"github.com/prajnoha/lvm2/pkg/metrics"
	"github.com/prajnoha/lvm2/pkg/scan"
	"github.com/prajnoha/lvm2/pkg/uevent"
)

// Options carries the daemon wiring knobs not covered by the configuration
// file.
type Options struct {
	// MetricsAddr is the listen address for the Prometheus endpoint;
	// empty disables it.
	MetricsAddr string

	// Engine overrides the exec-based scan engine. Used by tests.
	Engine scan.Engine
}

// Monitor is the running admission daemon.
type Monitor struct {
	cfg          config.Config
	opts         Options
	globalFilter *filter.Filter
	devFilter    *filter.Filter
	cache        *device.Cache
	coordinator  *scan.Coordinator
	scheduler    *scan.Scheduler
	engine       scan.Engine
}

// New builds a monitor from a validated configuration. The uevent socket is
// not opened until Run.
func New(cfg config.Config, opts Options) (*Monitor, error) {
	globalFilter, err := filter.New(cfg.Devices.GlobalFilter, false, len(cfg.Devices.GlobalFilter) > 0)
	if err != nil {
		return nil, err
	}
	devFilter, err := filter.New(cfg.Devices.Filter, len(cfg.Devices.Filter) > 0, false)
	if err != nil {
		return nil, err
	}

	engine := opts.Engine
	if engine == nil {
		engine, err = scan.NewExecEngine(cfg.Scan.Command, time.Duration(cfg.Scan.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
	}

	classifier := events.NewClassifier(events.Probes{}, cfg.ScanActions())

	return &Monitor{
		cfg:          cfg,
		opts:         opts,
		globalFilter: globalFilter,
		devFilter:    devFilter,
		cache:        device.NewCache(),
		coordinator:  scan.NewCoordinator(scan.Mode(cfg.Scan.Mode), classifier),
		scheduler:    scan.NewScheduler(engine, cfg.Scan.Workers, cfg.Scan.Buffer),
		engine:       engine,
	}, nil
}

// Run operates the daemon until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	listener, err := uevent.NewListener()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	ch := make(chan events.Event, m.cfg.Listener.Buffer)

	g.Go(func() error { return listener.Listen(ctx, ch) })
	g.Go(func() error { return m.scheduler.Run(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev := <-ch:
				m.HandleEvent(ctx, ev)
			}
		}
	})

	if m.opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              m.opts.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			klog.Infof("Serving metrics on %s", m.opts.MetricsAddr)
			if serveErr := srv.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
				return serveErr
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent runs the full decision for one device event: admission,
// classification, scan-trigger, and execution of the resulting action.
func (m *Monitor) HandleEvent(ctx context.Context, ev events.Event) {
	props := m.cache.Get(ev.Devno)
	prevFS := props.FSType

	// The filter is only consulted for devices that are, or just were,
	// managed-volume members; everything else is ignored outright.
	if scan.IsMember(ev.FSType) || scan.IsMember(prevFS) {
		if !m.admit(ev) {
			metrics.RecordAdmission(metrics.OutcomeReject)
			props.FSType = ev.FSType
			if ev.Action == events.ActionRemove {
				m.cache.Forget(ev.Devno)
			}
			return
		}
		metrics.RecordAdmission(metrics.OutcomePass)
	}

	action := m.coordinator.Decide(ev, props, prevFS, ev.FSType)
	props.FSType = ev.FSType

	switch action {
	case scan.DeferredScan:
		m.scheduler.Enqueue(ev.Devno)
	case scan.DirectScan:
		if err := m.engine.Scan(ctx, ev.Devno); err != nil {
			klog.Errorf("Direct scan of %s failed: %v", ev.Devno, err)
		}
	case scan.Suppress:
	}

	if ev.Action == events.ActionRemove {
		m.cache.Forget(ev.Devno)
	}
}

// admit evaluates the device against the global and per-command filters. A
// device must pass both; the preferred-alias promotion from either filter is
// kept on the record.
func (m *Monitor) admit(ev events.Event) bool {
	dev := &device.Device{
		Aliases: ev.Aliases,
		FSType:  ev.FSType,
		Devno:   ev.Devno,
	}
	by := m.cfg.Bypass()

	if m.globalFilter.Evaluate(dev, by) == filter.Rejected {
		return false
	}
	if m.devFilter.Evaluate(dev, by) == filter.Rejected {
		return false
	}
	if dev.PreferredAlias != "" {
		klog.V(4).Infof("%s: preferred name %s", ev.Name, dev.PreferredAlias)
	}
	return true
}

// Close releases the filter instances.
func (m *Monitor) Close() error {
	if err := m.globalFilter.Close(); err != nil {
		return err
	}
	return m.devFilter.Close()
}
