// Package uevent subscribes to kernel uevents over the kobject netlink
// socket and decodes block-device notifications into admission-layer events.
package uevent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mdlayher/kobject"
	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/events"
	"github.com/prajnoha/lvm2/pkg/metrics"
)

var (
	mdDeviceRe    = regexp.MustCompile(`^md[0-9]+$`)
	mdPartitionRe = regexp.MustCompile(`^md[0-9]+p[0-9]+$`)
	loopDeviceRe  = regexp.MustCompile(`^loop[0-9]+$`)
	dmDeviceRe    = regexp.MustCompile(`^dm-[0-9]+$`)
)

// Listener receives kernel uevents and forwards decoded block-device events.
type Listener struct {
	client *kobject.Client
}

// NewListener opens the kobject netlink socket.
func NewListener() (*Listener, error) {
	client, err := kobject.New()
	if err != nil {
		return nil, err
	}
	return &Listener{client: client}, nil
}

// Listen forwards decoded block-device events to ch until the context is
// cancelled. Non-block uevents are dropped silently.
func (l *Listener) Listen(ctx context.Context, ch chan<- events.Event) error {
	// Receive blocks on the socket; closing the client unblocks it when
	// the context ends.
	go func() {
		<-ctx.Done()
		if err := l.client.Close(); err != nil {
			klog.V(4).Infof("Closing uevent socket: %v", err)
		}
	}()

	for {
		kev, err := l.client.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		ev, ok := Decode(kev)
		if !ok {
			continue
		}
		metrics.RecordUevent(string(ev.Action))

		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Decode translates one kernel uevent into an admission-layer event. It
// reports ok=false for uevents that are not about block devices.
func Decode(kev *kobject.Event) (events.Event, bool) {
	if kev.Subsystem != "block" {
		return events.Event{}, false
	}

	devname, ok := kev.Values["DEVNAME"]
	if !ok || devname == "" {
		return events.Event{}, false
	}
	kernelName := devname
	if i := strings.LastIndexByte(devname, '/'); i >= 0 {
		kernelName = devname[i+1:]
	}
	if !strings.HasPrefix(devname, "/") {
		devname = "/dev/" + devname
	}

	ev := events.Event{
		Action:  events.Action(strings.ToLower(string(kev.Action))),
		Name:    devname,
		Aliases: append([]string{devname}, parseDevlinks(kev.Values["DEVLINKS"])...),
		Devno:   parseDevno(kev.Values["MAJOR"], kev.Values["MINOR"]),
		FSType:  kev.Values["ID_FS_TYPE"],
	}

	// A synthesized uevent (written to the sysfs uevent file, or replayed
	// by a cold-plug trigger) carries a synth UUID.
	if _, ok := kev.Values["SYNTH_UUID"]; ok {
		ev.Artificial = true
	}

	switch {
	case dmDeviceRe.MatchString(kernelName):
		ev.Class = events.ClassComposite
		// Composite devices announce usability themselves; the primary
		// source flag marks the genuine activation event.
		ev.ActiveSignal = kev.Values["DM_UDEV_PRIMARY_SOURCE_FLAG"] == "1" ||
			kev.Values["DM_ACTIVATION"] == "1"
	case mdPartitionRe.MatchString(kernelName):
		ev.Class = events.ClassArray
		ev.Partition = true
	case mdDeviceRe.MatchString(kernelName):
		ev.Class = events.ClassArray
	case loopDeviceRe.MatchString(kernelName):
		ev.Class = events.ClassLoop
	default:
		ev.Class = events.ClassOther
	}

	return ev, true
}

// parseDevlinks splits the space-separated udev symlink list.
func parseDevlinks(devlinks string) []string {
	if devlinks == "" {
		return nil
	}
	return strings.Fields(devlinks)
}

// parseDevno converts the MAJOR/MINOR uevent values. Zero values are kept
// for malformed input; the decision logic treats the identity opaquely.
func parseDevno(major, minor string) device.Devno {
	maj, err := strconv.ParseUint(major, 10, 32)
	if err != nil {
		return device.Devno{}
	}
	min, err := strconv.ParseUint(minor, 10, 32)
	if err != nil {
		return device.Devno{}
	}
	return device.Devno{Major: uint32(maj), Minor: uint32(min)}
}
