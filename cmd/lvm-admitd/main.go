// Package main implements the device-admission daemon entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/config"
	"github.com/prajnoha/lvm2/pkg/metrics"
	"github.com/prajnoha/lvm2/pkg/monitor"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath  = flag.String("config", "", "Path to the daemon configuration file")
	metricsAddr = flag.String("metrics-addr", ":9095", "Address to expose Prometheus metrics (empty disables)")
	showVersion = flag.Bool("show-version", false, "Show version and exit")
	debug       = flag.Bool("debug", false, "Enable debug logging (equivalent to -v=4)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *debug || os.Getenv("DEBUG_LVM_ADMIT") == "true" || os.Getenv("DEBUG_LVM_ADMIT") == "1" {
		if err := flag.Set("v", "4"); err != nil {
			klog.Warningf("Failed to set verbosity level: %v", err)
		}
	}

	if *showVersion {
		fmt.Printf("lvm-admitd version: %s\n", version)
		fmt.Printf("  Git commit: %s\n", gitCommit)
		fmt.Printf("  Build date: %s\n", buildDate)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Fatalf("Failed to load configuration: %v", err)
	}

	metrics.SetVersionInfo(version, gitCommit, buildDate)

	klog.Infof("Starting lvm-admitd %s (commit: %s, built: %s)", version, gitCommit, buildDate)
	klog.V(4).Infof("Scan mode: %s", cfg.Scan.Mode)
	klog.V(4).Infof("Filter patterns: %d + %d global", len(cfg.Devices.Filter), len(cfg.Devices.GlobalFilter))

	m, err := monitor.New(cfg, monitor.Options{MetricsAddr: *metricsAddr})
	if err != nil {
		klog.Fatalf("Failed to create monitor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx); err != nil {
		klog.Fatalf("Monitor failed: %v", err)
	}
	if err := m.Close(); err != nil {
		klog.Errorf("Shutdown: %v", err)
	}
	klog.Info("lvm-admitd stopped")
}
