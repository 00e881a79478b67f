// Package device holds the block-device record used by the admission layer
// and the per-device-identity properties cache shared across events.
package device

import "fmt"

// FilteredFlag identifies which admission filter last rejected a device.
type FilteredFlag uint32

const (
	// FilteredRegex is set when the pattern filter rejected the device.
	FilteredRegex FilteredFlag = 1 << iota
)

// Devno is a kernel device identity (major:minor).
type Devno struct {
	Major uint32
	Minor uint32
}

func (d Devno) String() string {
	return fmt.Sprintf("%d:%d", d.Major, d.Minor)
}

// Device is a discovered block device. The discovery layer owns the record;
// the admission layer only mutates the filtered flags and the preferred
// alias.
//
// Aliases are ordered and the first entry is the canonical name. The
// canonical name is never replaced; only a later alias may be promoted to
// preferred.
type Device struct {
	Aliases        []string
	PreferredAlias string
	FilteredFlags  FilteredFlag
	FSType         string
	Devno          Devno
}

// Name returns the name to display for the device: the preferred alias when
// one was promoted, otherwise the canonical name.
func (d *Device) Name() string {
	if d.PreferredAlias != "" {
		return d.PreferredAlias
	}
	if len(d.Aliases) > 0 {
		return d.Aliases[0]
	}
	return ""
}

// SetPreferred promotes an alias for display and naming collaborators.
func (d *Device) SetPreferred(alias string) {
	d.PreferredAlias = alias
}

// SetFiltered marks the device as rejected by the given filter.
func (d *Device) SetFiltered(flag FilteredFlag) {
	d.FilteredFlags |= flag
}

// ClearFiltered clears a previous rejection by the given filter.
func (d *Device) ClearFiltered(flag FilteredFlag) {
	d.FilteredFlags &^= flag
}

// Filtered reports whether the given filter currently rejects the device.
func (d *Device) Filtered(flag FilteredFlag) bool {
	return d.FilteredFlags&flag != 0
}
