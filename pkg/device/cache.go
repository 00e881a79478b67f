package device

import "sync"

// Properties is the per-device-identity state persisted across events.
//
// Activated records that a class-specific readiness probe has succeeded for
// the device (array assembled, loop backing file attached, composite device
// activated). Ready is the readiness signal consumed externally to gate a
// dependent service. FSType is the filesystem-type classification observed
// on the previous event for the device.
//
// The event source serializes events per device identity, so at most one
// writer touches a Properties value at a time; the cache itself may be hit
// from several goroutines.
type Properties struct {
	Activated bool
	Ready     bool
	FSType    string
}

// Cache stores Properties keyed by device identity.
type Cache struct {
	mu    sync.Mutex
	props map[Devno]*Properties
}

// NewCache creates an empty properties cache.
func NewCache() *Cache {
	return &Cache{props: make(map[Devno]*Properties)}
}

// Get returns the properties for a device identity, creating an empty record
// on first sight.
func (c *Cache) Get(devno Devno) *Properties {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.props[devno]
	if !ok {
		p = &Properties{}
		c.props[devno] = p
	}
	return p
}

// Forget drops the record for a removed device identity.
func (c *Cache) Forget(devno Devno) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.props, devno)
}

// Len returns the number of tracked device identities.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.props)
}
