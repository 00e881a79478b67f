// Package events models block-device lifecycle events and classifies them
// into scan dispositions per device class.
package events

import "github.com/prajnoha/lvm2/pkg/device"

// Action is a device event action as reported by the kernel.
type Action string

const (
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionRemove Action = "remove"
)

// Class buckets a block device by how its readiness must be judged.
type Class int

const (
	// ClassOther covers plain disks and anything not recognised below.
	ClassOther Class = iota

	// ClassComposite is a mapped/virtual device built from other devices.
	ClassComposite

	// ClassArray is a redundant disk array member.
	ClassArray

	// ClassLoop is a loopback-backed device.
	ClassLoop
)

func (c Class) String() string {
	switch c {
	case ClassComposite:
		return "composite"
	case ClassArray:
		return "array"
	case ClassLoop:
		return "loop"
	default:
		return "other"
	}
}

// Event is one device lifecycle notification, decoded from a kernel uevent.
type Event struct {
	Action Action

	// Artificial marks a replayed/synthesized event (cold-plug replay or an
	// explicit re-trigger), as opposed to a genuine kernel notification.
	Artificial bool

	Class Class

	// ActiveSignal is the class-specific "device is now usable" signal
	// carried by the event itself (composite devices announce activation
	// this way).
	ActiveSignal bool

	// Partition marks a partition of an array device.
	Partition bool

	Name    string
	Aliases []string
	Devno   device.Devno
	FSType  string
}
