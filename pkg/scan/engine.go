package scan

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/utils"
)

// Static errors for scan engine configuration.
var (
	ErrEmptyScanCommand = errors.New("scan command must not be empty")
)

// Engine is the external metadata scan and activation collaborator. A scan
// is fire-and-forget from the admission layer's perspective: errors are
// reported, never acted on.
type Engine interface {
	Scan(ctx context.Context, devno device.Devno) error
}

// ExecEngine invokes the scan tool out of process, appending the device's
// major:minor identity to the configured command line.
type ExecEngine struct {
	command []string
	timeout time.Duration
}

// NewExecEngine builds an exec-based engine, e.g. from
// ["pvscan", "--cache", "--activate", "ay"].
func NewExecEngine(command []string, timeout time.Duration) (*ExecEngine, error) {
	if len(command) == 0 {
		return nil, ErrEmptyScanCommand
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecEngine{command: command, timeout: timeout}, nil
}

// Scan runs the configured command for one device identity. Transient
// busy errors are retried with a short backoff because the scan tool
// races against udev rule processing on the same device.
func (e *ExecEngine) Scan(ctx context.Context, devno device.Devno) error {
	retry := utils.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableFunc:     utils.IsRetryableScanError,
		OperationName:     "scan " + devno.String(),
	}
	return utils.WithRetryNoResult(ctx, retry, func() error {
		return e.runOnce(ctx, devno)
	})
}

func (e *ExecEngine) runOnce(ctx context.Context, devno device.Devno) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := make([]string, 0, len(e.command))
	args = append(args, e.command[1:]...)
	args = append(args, devno.String())

	klog.V(4).Infof("Invoking scan: %s %v", e.command[0], args)
	//nolint:gosec // The command line comes from the daemon's own configuration.
	cmd := exec.CommandContext(ctx, e.command[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("scan of %s failed: %w: %s", devno, err, out)
	}
	return nil
}
