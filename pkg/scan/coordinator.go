// Package scan decides when a device event must trigger a metadata scan and
// runs the resulting scan jobs out of band.
package scan

import (
	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/events"
	"github.com/prajnoha/lvm2/pkg/metrics"
)

// MemberFSType is the filesystem-type classification marking a device as a
// managed-volume member.
const MemberFSType = "LVM2_member"

// IsMember reports whether a filesystem-type classification indicates
// managed-volume membership.
func IsMember(fsType string) bool {
	return fsType == MemberFSType
}

// Mode selects how qualifying scans are executed.
type Mode string

const (
	// ModeDeferred schedules scans as out-of-band jobs keyed by device
	// identity. This is the normal operating mode.
	ModeDeferred Mode = "deferred"

	// ModeDirect invokes scans synchronously within the event handler.
	ModeDirect Mode = "direct"
)

// Action is the coordinator's final verdict for one event.
type Action int

const (
	// Suppress means the event triggers no scan.
	Suppress Action = iota

	// DeferredScan means the caller schedules an out-of-band scan job
	// keyed by the device's major:minor.
	DeferredScan

	// DirectScan means the caller invokes the scan synchronously.
	DirectScan
)

func (a Action) String() string {
	switch a {
	case DeferredScan:
		return "deferred"
	case DirectScan:
		return "direct"
	default:
		return "suppress"
	}
}

// Coordinator combines the event classifier's disposition with the
// membership observation to produce the final scan action and the readiness
// signal update.
type Coordinator struct {
	mode       Mode
	classifier *events.Classifier
}

// NewCoordinator builds a coordinator operating in the given mode.
func NewCoordinator(mode Mode, classifier *events.Classifier) *Coordinator {
	return &Coordinator{mode: mode, classifier: classifier}
}

// Mode returns the configured scan execution mode.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// Decide produces the scan action for one event.
//
// prevFS is the filesystem-type classification recorded on the previous
// event for this device identity, curFS the current one. A device whose
// membership was just lost is forced down the scan path regardless of the
// classifier, so stale volume metadata gets purged.
func (c *Coordinator) Decide(ev events.Event, props *device.Properties, prevFS, curFS string) Action {
	membershipLost := IsMember(prevFS) && !IsMember(curFS)
	if membershipLost {
		klog.V(4).Infof("%s: managed-volume membership lost", ev.Name)
	}

	// A device that is not a member and did not just stop being one is of
	// no interest.
	if !IsMember(curFS) && !membershipLost {
		return Suppress
	}

	disp := c.classifier.Classify(ev, props)
	metrics.RecordDisposition(ev.Class.String(), string(ev.Action), disp.String())

	if !membershipLost && disp != events.ForceScan {
		// A legitimate member awaiting a future qualifying event. The
		// class gate owns the readiness signal while the device is not
		// yet activated, so don't overrule a cleared gate.
		if !c.gatedNotReady(ev, props) {
			props.Ready = true
		}
		return Suppress
	}

	action := c.scanAction(ev, membershipLost, props)
	metrics.RecordScanAction(action.String(), string(c.mode))
	return action
}

// scanAction applies the configured execution mode once a scan is warranted.
func (c *Coordinator) scanAction(ev events.Event, membershipLost bool, props *device.Properties) Action {
	if c.mode == ModeDirect {
		// A replayed change must not auto-activate anything.
		if ev.Artificial && ev.Action == events.ActionChange {
			klog.V(4).Infof("%s: artificial change, not scanning", ev.Name)
			return Suppress
		}
		props.Ready = true
		return DirectScan
	}

	// Removal cannot be deferred: the device will no longer exist to
	// re-probe, so the cleanup scan runs synchronously.
	if membershipLost && ev.Action == events.ActionRemove {
		return DirectScan
	}

	props.Ready = true
	return DeferredScan
}

// gatedNotReady reports whether the classifier's per-class gate is holding
// the readiness signal down for a not-yet-activated device.
func (c *Coordinator) gatedNotReady(ev events.Event, props *device.Properties) bool {
	return (ev.Class == events.ClassArray || ev.Class == events.ClassLoop) && !props.Activated
}
