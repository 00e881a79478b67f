package filter

import (
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/prajnoha/lvm2/pkg/device"
)

// Result is the admission decision for a device.
type Result bool

const (
	Pass     Result = true
	Rejected Result = false
)

// Bypass carries the configuration flags that short-circuit evaluation.
// Passing them explicitly keeps Evaluate pure given its inputs instead of
// reading ambient command state.
type Bypass struct {
	// AllowListActive bypasses the filter while an explicit device
	// allow-list is in force.
	AllowListActive bool

	// Skip disables the filter for this invocation.
	Skip bool

	// DevicesFileActive reports that a device-identity file is in use.
	DevicesFileActive bool

	// FilterWithDevicesFile marks this filter as cooperating with the
	// devices file; without it, an active devices file bypasses the
	// filter entirely.
	FilterWithDevicesFile bool

	// PreferredNameDisabled suppresses preferred-alias promotion.
	PreferredNameDisabled bool
}

// Filter wraps a compiled PatternSet with the lifecycle state of one filter
// instance: an atomic use counter guarding Close, and one warn-once latch
// per legacy-configuration category.
type Filter struct {
	patterns *PatternSet
	useCount atomic.Int64

	// Set at construction when the corresponding legacy configuration
	// section was present; used only to decide which warning to emit.
	configFilter       bool
	configGlobalFilter bool

	warnOnce       sync.Once
	warnGlobalOnce sync.Once
}

// New builds a filter from raw pattern strings. configFilter and
// configGlobalFilter record which legacy configuration sections supplied the
// patterns, for the devices-file warnings.
func New(patterns []string, configFilter, configGlobalFilter bool) (*Filter, error) {
	ps, err := Compile(patterns)
	if err != nil {
		return nil, err
	}
	klog.V(4).Info("Regex filter initialised")
	return &Filter{
		patterns:           ps,
		configFilter:       configFilter,
		configGlobalFilter: configGlobalFilter,
	}, nil
}

// Patterns exposes the compiled pattern set.
func (f *Filter) Patterns() *PatternSet {
	return f.patterns
}

// UseCount returns the number of evaluations currently in flight.
func (f *Filter) UseCount() int64 {
	return f.useCount.Load()
}

// Evaluate decides whether a device passes the filter.
//
// Aliases are walked in order. The first alias that matches an accept
// pattern wins immediately, promoting itself to preferred when it is not the
// canonical name. A reject match is recorded but later aliases keep their
// chance to accept. A device whose aliases match nothing passes: the filter
// rejects by exception, it does not admit by exception.
func (f *Filter) Evaluate(dev *device.Device, by Bypass) Result {
	f.useCount.Add(1)
	defer f.useCount.Add(-1)

	dev.ClearFiltered(device.FilteredRegex)

	if by.AllowListActive || by.Skip {
		return Pass
	}

	if by.DevicesFileActive && !by.FilterWithDevicesFile {
		if f.configFilter {
			f.warnOnce.Do(func() {
				klog.Warning("Please remove the devices filter, it is ignored with the devices file")
			})
		}
		if f.configGlobalFilter {
			f.warnGlobalOnce.Do(func() {
				klog.Warning("Please remove the devices global filter, it is ignored with the devices file")
			})
		}
		return Pass
	}

	first := true
	rejected := false

	for _, alias := range dev.Aliases {
		polarity, ok := f.patterns.Match(alias)
		if ok {
			if polarity == Accept {
				if !first && !by.PreferredNameDisabled {
					dev.SetPreferred(alias)
				}
				return Pass
			}
			rejected = true
		}
		first = false
	}

	if rejected {
		dev.SetFiltered(device.FilteredRegex)
		klog.V(4).Infof("%s: skipping (regex)", dev.Name())
		return Rejected
	}

	// Pass everything that doesn't match anything.
	return Pass
}

// Close releases the filter. Closing while evaluations are in flight is a
// caller lifetime bug: it is reported as an InternalError, but the filter is
// considered released either way to avoid leaks.
func (f *Filter) Close() error {
	n := f.useCount.Load()
	f.patterns = nil
	if n != 0 {
		klog.Errorf("Closing regex filter while in use %d times", n)
		return &InternalError{UseCount: n, Err: ErrFilterInUse}
	}
	return nil
}
