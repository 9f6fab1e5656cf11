package pipeline

import (
	"sync"

	"github.com/mtconnect-go/agent/model"
)

// AdapterContext tracks the mutable per-source state that T3 and T5
// read and write: the device currently addressed by unqualified data
// item names, and the protocol-reported identity/option overrides a `*`
// control line may set (spec.md §4.5 T5). One context is shared by every
// stage instance wired to the same source.
type AdapterContext struct {
	mu sync.Mutex

	device *model.Device

	UUID               string
	Manufacturer       string
	SerialNumber       string
	Station            string
	ConversionRequired *bool
	RelativeTime       *bool
	RealTime           *bool
}

func NewAdapterContext(device *model.Device) *AdapterContext {
	return &AdapterContext{device: device}
}

func (c *AdapterContext) CurrentDevice() *model.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

func (c *AdapterContext) SetCurrentDevice(d *model.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.device = d
}
