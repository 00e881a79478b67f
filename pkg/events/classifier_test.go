package events

import (
	"testing"

	"github.com/prajnoha/lvm2/pkg/device"
)

func newTestClassifier(arrayReady, loopReady bool) *Classifier {
	probes := Probes{
		ArrayReady: func(string) bool { return arrayReady },
		LoopReady:  func(string) bool { return loopReady },
	}
	return NewClassifier(probes, []Action{ActionAdd, ActionChange})
}

func TestClassifyRemoveAlwaysScans(t *testing.T) {
	c := newTestClassifier(false, false)
	for _, class := range []Class{ClassOther, ClassComposite, ClassArray, ClassLoop} {
		props := &device.Properties{}
		ev := Event{Action: ActionRemove, Class: class, Name: "dev"}
		if got := c.Classify(ev, props); got != ForceScan {
			t.Errorf("Classify(remove, %s) = %v, want ForceScan", class, got)
		}
	}
}

func TestClassifyComposite(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		signal bool
		want   Disposition
	}{
		{name: "change with activation signal", action: ActionChange, signal: true, want: ForceScan},
		{name: "cold-plug replay add with signal", action: ActionAdd, signal: true, want: ForceScan},
		{name: "change without signal", action: ActionChange, signal: false, want: Suppress},
		{name: "first add without signal", action: ActionAdd, signal: false, want: Suppress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(false, false)
			ev := Event{Action: tt.action, Class: ClassComposite, ActiveSignal: tt.signal, Name: "dm-3"}
			if got := c.Classify(ev, &device.Properties{}); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyArrayReadinessGating(t *testing.T) {
	c := newTestClassifier(false, false)
	props := &device.Properties{Ready: true}

	// First add: array not assembled, no recorded activation.
	ev := Event{Action: ActionAdd, Class: ClassArray, Name: "md0"}
	if got := c.Classify(ev, props); got != Suppress {
		t.Fatalf("Classify(first add) = %v, want Suppress", got)
	}
	if props.Ready {
		t.Error("suppressed un-activated array should clear the readiness signal")
	}
	if props.Activated {
		t.Error("activation must not be recorded without a successful probe")
	}

	// Change with a succeeding probe flips activation and scans.
	c2 := newTestClassifier(true, false)
	ev = Event{Action: ActionChange, Class: ClassArray, Name: "md0"}
	if got := c2.Classify(ev, props); got != ForceScan {
		t.Fatalf("Classify(change, probe ok) = %v, want ForceScan", got)
	}
	if !props.Activated {
		t.Error("successful probe should record activation")
	}

	// Replayed add after recorded activation scans without re-probing.
	ev = Event{Action: ActionAdd, Class: ClassArray, Name: "md0"}
	if got := c.Classify(ev, props); got != ForceScan {
		t.Errorf("Classify(replayed add, activated) = %v, want ForceScan", got)
	}
}

func TestClassifyArrayPartition(t *testing.T) {
	c := newTestClassifier(false, false)
	ev := Event{Action: ActionAdd, Class: ClassArray, Name: "md0p1", Partition: true}
	if got := c.Classify(ev, &device.Properties{}); got != ForceScan {
		t.Errorf("Classify(array partition add) = %v, want ForceScan", got)
	}
}

func TestClassifyLoop(t *testing.T) {
	tests := []struct {
		name          string
		action        Action
		probe         bool
		activated     bool
		want          Disposition
		wantActivated bool
	}{
		{
			name:          "change with backing file attaches",
			action:        ActionChange,
			probe:         true,
			want:          ForceScan,
			wantActivated: true,
		},
		{
			name:   "change without backing file",
			action: ActionChange,
			probe:  false,
			want:   Suppress,
		},
		{
			name:   "first add",
			action: ActionAdd,
			probe:  false,
			want:   Suppress,
		},
		{
			name:          "replayed add after activation",
			action:        ActionAdd,
			activated:     true,
			want:          ForceScan,
			wantActivated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(false, tt.probe)
			props := &device.Properties{Activated: tt.activated}
			ev := Event{Action: tt.action, Class: ClassLoop, Name: "loop7"}
			if got := c.Classify(ev, props); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
			if props.Activated != tt.wantActivated {
				t.Errorf("Activated = %v, want %v", props.Activated, tt.wantActivated)
			}
		})
	}
}

func TestClassifyOther(t *testing.T) {
	c := NewClassifier(Probes{
		ArrayReady: func(string) bool { return false },
		LoopReady:  func(string) bool { return false },
	}, []Action{ActionAdd, ActionChange})

	tests := []struct {
		name   string
		action Action
		want   Disposition
	}{
		{name: "add is scan-worthy", action: ActionAdd, want: ForceScan},
		{name: "change is scan-worthy", action: ActionChange, want: ForceScan},
		{name: "unknown action suppressed", action: Action("move"), want: Suppress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Event{Action: tt.action, Class: ClassOther, Name: "sda"}
			if got := c.Classify(ev, &device.Properties{}); got != tt.want {
				t.Errorf("Classify(%s) = %v, want %v", tt.action, got, tt.want)
			}
		})
	}
}

func TestClassifyUnknownClassSuppressed(t *testing.T) {
	c := newTestClassifier(true, true)
	ev := Event{Action: ActionChange, Class: Class(42), Name: "mystery"}
	if got := c.Classify(ev, &device.Properties{}); got != Suppress {
		t.Errorf("Classify(unknown class) = %v, want Suppress", got)
	}
}
