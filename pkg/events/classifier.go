package events

import (
	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/device"
)

// Disposition is the classifier's verdict on whether an event warrants a
// metadata scan.
type Disposition int

const (
	Suppress Disposition = iota
	ForceScan
)

func (d Disposition) String() string {
	if d == ForceScan {
		return "force-scan"
	}
	return "suppress"
}

// Probes are the class-specific liveness checks consulted before a device is
// first treated as usable. Both default to sysfs checks; tests substitute
// their own.
type Probes struct {
	// ArrayReady reports whether the array state of the named device is
	// readable, meaning the array is assembled.
	ArrayReady func(name string) bool

	// LoopReady reports whether the named loop device has a backing file
	// attached.
	LoopReady func(name string) bool
}

// Classifier turns a device event into a disposition. Composite, array and
// loop devices are not scan-worthy on their first add because they are not
// yet usable; they become scan-worthy on change once their class-specific
// readiness probe succeeds, or retroactively on a replayed add when
// readiness was already recorded.
type Classifier struct {
	probes      Probes
	scanActions map[Action]bool
}

// NewClassifier builds a classifier. scanActions is the set of actions that
// make an Other-class device scan-worthy.
func NewClassifier(probes Probes, scanActions []Action) *Classifier {
	if probes.ArrayReady == nil {
		probes.ArrayReady = sysfsArrayReady
	}
	if probes.LoopReady == nil {
		probes.LoopReady = sysfsLoopReady
	}
	actions := make(map[Action]bool, len(scanActions))
	for _, a := range scanActions {
		actions[a] = true
	}
	return &Classifier{probes: probes, scanActions: actions}
}

// Classify decides the disposition for an event, updating the device's
// recorded activation state as class-specific readiness is observed.
//
// A remove always forces a scan: a previously admitted member disappearing
// must trigger cleanup regardless of class. Unknown classes and actions fall
// to the conservative Suppress.
func (c *Classifier) Classify(ev Event, props *device.Properties) Disposition {
	if ev.Action == ActionRemove {
		return ForceScan
	}

	switch ev.Class {
	case ClassComposite:
		// Only the activation change (or its cold-plug replay) makes a
		// composite device scan-worthy.
		if (ev.Action == ActionChange || ev.Action == ActionAdd) && ev.ActiveSignal {
			return ForceScan
		}
		return Suppress

	case ClassArray:
		return c.classifyGated(ev, props, c.probes.ArrayReady)

	case ClassLoop:
		return c.classifyGated(ev, props, c.probes.LoopReady)

	case ClassOther:
		if c.scanActions[ev.Action] {
			return ForceScan
		}
		return Suppress

	default:
		return Suppress
	}
}

// classifyGated implements the shared array/loop gating: a device becomes
// scan-worthy once its liveness probe has succeeded, recorded in the
// per-identity activated flag so replayed adds keep working.
func (c *Classifier) classifyGated(ev Event, props *device.Properties, ready func(string) bool) Disposition {
	if ev.Action == ActionAdd && ev.Partition {
		return ForceScan
	}

	if ev.Action == ActionChange && !props.Activated && ready(ev.Name) {
		props.Activated = true
		klog.V(4).Infof("%s: %s device activated", ev.Name, ev.Class)
		return ForceScan
	}

	if props.Activated {
		return ForceScan
	}

	// Not usable yet: keep the dependent service gated until it is.
	props.Ready = false
	klog.V(4).Infof("%s: %s device not ready, suppressing", ev.Name, ev.Class)
	return Suppress
}
